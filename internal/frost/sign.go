package frost

import (
	"encoding/hex"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// Nonce 参与者本地持有的一次性随机数对，签名一次后作废
type Nonce struct {
	index      uint32
	hiding     secp256k1.ModNScalar
	binding    secp256k1.ModNScalar
	commitment NonceCommitment
	used       bool
}

// GenerateNonce 为指定参与者编号生成一次性随机数对与对应承诺
func GenerateNonce(index uint32) (*Nonce, error) {
	if index == 0 {
		return nil, errors.New("participant index must be positive")
	}
	d, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate hiding nonce")
	}
	e, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate binding nonce")
	}

	var hidingPoint, bindingPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&d.Key, &hidingPoint)
	secp256k1.ScalarBaseMultNonConst(&e.Key, &bindingPoint)

	hidingHex, err := encodePoint(&hidingPoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode hiding commitment")
	}
	bindingHex, err := encodePoint(&bindingPoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode binding commitment")
	}

	n := &Nonce{index: index}
	n.hiding.Set(&d.Key)
	n.binding.Set(&e.Key)
	n.commitment = NonceCommitment{Index: index, Hiding: hidingHex, Binding: bindingHex}
	return n, nil
}

// Commitment 返回第一轮广播用的承诺
func (n *Nonce) Commitment() NonceCommitment {
	return n.commitment
}

type parsedCommitment struct {
	index      uint32
	hiding     secp256k1.JacobianPoint
	binding    secp256k1.JacobianPoint
	rawHiding  []byte
	rawBinding []byte
}

// signingContext 对一组承诺只展开一次的中间量
type signingContext struct {
	commitments  []parsedCommitment
	factors      map[uint32]*secp256k1.ModNScalar
	groupCommit  secp256k1.JacobianPoint
	negateNonces bool
	rx           [32]byte
}

func newSigningContext(msgHash []byte, commitments []NonceCommitment) (*signingContext, error) {
	if len(msgHash) != ScalarSize {
		return nil, errors.Errorf("message hash must be %d bytes, got %d", ScalarSize, len(msgHash))
	}
	if len(commitments) < MinSigners {
		return nil, errors.Errorf("at least %d signers are required, got %d", MinSigners, len(commitments))
	}

	// 1. 解析并按参与者编号排序，给所有签名者一个确定的视图
	parsed := make([]parsedCommitment, 0, len(commitments))
	seen := make(map[uint32]bool, len(commitments))
	for _, c := range commitments {
		if c.Index == 0 {
			return nil, errors.New("participant index must be positive")
		}
		if seen[c.Index] {
			return nil, errors.Errorf("duplicate commitment for participant %d", c.Index)
		}
		seen[c.Index] = true

		hiding, rawHiding, err := parsePoint(c.Hiding)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid hiding commitment for participant %d", c.Index)
		}
		binding, rawBinding, err := parsePoint(c.Binding)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid binding commitment for participant %d", c.Index)
		}
		parsed = append(parsed, parsedCommitment{
			index:      c.Index,
			hiding:     *hiding,
			binding:    *binding,
			rawHiding:  rawHiding,
			rawBinding: rawBinding,
		})
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].index < parsed[j].index })

	// 2. 绑定因子输入为 消息哈希 || 承诺列表 || 参与者编号
	var listBytes []byte
	for i := range parsed {
		listBytes = append(listBytes, indexBytes(parsed[i].index)...)
		listBytes = append(listBytes, parsed[i].rawHiding...)
		listBytes = append(listBytes, parsed[i].rawBinding...)
	}

	// 3. 组承诺 R = sum(D_i + rho_i*E_i)
	factors := make(map[uint32]*secp256k1.ModNScalar, len(parsed))
	var sum secp256k1.JacobianPoint
	for i := range parsed {
		c := &parsed[i]
		rho := hashToScalar(tagBindingFactor, msgHash, listBytes, indexBytes(c.index))
		factors[c.index] = rho

		var weighted, term, next secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(rho, &c.binding, &weighted)
		secp256k1.AddNonConst(&c.hiding, &weighted, &term)
		secp256k1.AddNonConst(&sum, &term, &next)
		sum = next
	}
	if sum.Z.IsZero() {
		return nil, errors.New("group commitment is the point at infinity")
	}
	sum.ToAffine()

	sctx := &signingContext{
		commitments:  parsed,
		factors:      factors,
		groupCommit:  sum,
		negateNonces: sum.Y.IsOdd(),
	}
	sum.X.PutBytesUnchecked(sctx.rx[:])
	return sctx, nil
}

func (sctx *signingContext) signerIndices() []uint32 {
	indices := make([]uint32, 0, len(sctx.commitments))
	for i := range sctx.commitments {
		indices = append(indices, sctx.commitments[i].index)
	}
	return indices
}

func (sctx *signingContext) commitmentFor(index uint32) (*parsedCommitment, bool) {
	for i := range sctx.commitments {
		if sctx.commitments[i].index == index {
			return &sctx.commitments[i], true
		}
	}
	return nil, false
}

// ComputeBindingFactors 计算每个参与者的绑定因子 rho_i
func ComputeBindingFactors(msgHash []byte, commitments []NonceCommitment) (map[uint32]*secp256k1.ModNScalar, error) {
	sctx, err := newSigningContext(msgHash, commitments)
	if err != nil {
		return nil, err
	}
	return sctx.factors, nil
}

// GroupCommitment 计算组承诺 R，返回压缩点编码
func GroupCommitment(msgHash []byte, commitments []NonceCommitment) (string, error) {
	sctx, err := newSigningContext(msgHash, commitments)
	if err != nil {
		return "", err
	}
	return encodePoint(&sctx.groupCommit)
}

// lagrangeCoefficient 在群阶域上计算参与者的拉格朗日系数
func lagrangeCoefficient(index uint32, signerIndices []uint32) (*secp256k1.ModNScalar, error) {
	num := new(secp256k1.ModNScalar).SetInt(1)
	den := new(secp256k1.ModNScalar).SetInt(1)
	xi := new(secp256k1.ModNScalar).SetInt(index)

	found := false
	for _, j := range signerIndices {
		if j == index {
			if found {
				return nil, errors.Errorf("duplicate signer index %d", j)
			}
			found = true
			continue
		}
		xj := new(secp256k1.ModNScalar).SetInt(j)
		num.Mul(xj)

		negXi := new(secp256k1.ModNScalar).Set(xi)
		negXi.Negate()
		diff := new(secp256k1.ModNScalar).Set(xj)
		diff.Add(negXi)
		if diff.IsZero() {
			return nil, errors.Errorf("duplicate signer index %d", j)
		}
		den.Mul(diff)
	}
	if !found {
		return nil, errors.Errorf("participant %d is not part of the signer set", index)
	}

	den.InverseNonConst()
	num.Mul(den)
	return num, nil
}

// Sign 计算本参与者的第二轮部分签名 z_i = d_i + rho_i*e_i + lambda_i*s_i*c
func Sign(share *KeyShare, nonce *Nonce, msgHash []byte, commitments []NonceCommitment) (*PartialSignature, error) {
	if share == nil {
		return nil, errors.New("key share is required")
	}
	if nonce == nil {
		return nil, errors.New("nonce is required")
	}
	if nonce.used {
		return nil, errors.New("nonce has already been used")
	}
	if nonce.index != share.Index {
		return nil, errors.Errorf("nonce index %d does not match share index %d", nonce.index, share.Index)
	}

	sctx, err := newSigningContext(msgHash, commitments)
	if err != nil {
		return nil, err
	}
	own, ok := sctx.commitmentFor(share.Index)
	if !ok {
		return nil, errors.Errorf("participant %d has no commitment in the signer set", share.Index)
	}
	// 承诺列表中的自身条目必须与本地随机数一致
	if nonce.commitment.Hiding != hex.EncodeToString(own.rawHiding) ||
		nonce.commitment.Binding != hex.EncodeToString(own.rawBinding) {
		return nil, errors.Errorf("commitment list entry for participant %d does not match the local nonce", share.Index)
	}

	secret, err := parseSecretScalar(share.Secret)
	if err != nil {
		return nil, errors.Wrap(err, "invalid secret share")
	}
	groupKeyX, err := parseGroupKeyX(share.GroupPublicKey)
	if err != nil {
		return nil, err
	}
	lambda, err := lagrangeCoefficient(share.Index, sctx.signerIndices())
	if err != nil {
		return nil, err
	}
	c := challengeScalar(sctx.rx, groupKeyX, msgHash)

	// R 的 y 坐标为奇时取反本地随机数，使有效组承诺保持偶 y
	d := new(secp256k1.ModNScalar).Set(&nonce.hiding)
	e := new(secp256k1.ModNScalar).Set(&nonce.binding)
	if sctx.negateNonces {
		d.Negate()
		e.Negate()
	}

	rho := sctx.factors[share.Index]
	z := new(secp256k1.ModNScalar).Set(e)
	z.Mul(rho)
	z.Add(d)

	lsc := new(secp256k1.ModNScalar).Set(lambda)
	lsc.Mul(secret)
	lsc.Mul(c)
	z.Add(lsc)

	nonce.used = true
	zb := z.Bytes()
	return &PartialSignature{Index: share.Index, Z: hex.EncodeToString(zb[:])}, nil
}

// Aggregate 聚合部分签名输出最终签名，相同输入产生相同结果
func Aggregate(msgHash []byte, commitments []NonceCommitment, partials []PartialSignature) (*Signature, error) {
	sctx, err := newSigningContext(msgHash, commitments)
	if err != nil {
		return nil, err
	}
	if len(partials) != len(sctx.commitments) {
		return nil, errors.Errorf("expected %d partial signatures, got %d", len(sctx.commitments), len(partials))
	}

	seen := make(map[uint32]bool, len(partials))
	s := new(secp256k1.ModNScalar)
	for _, p := range partials {
		if seen[p.Index] {
			return nil, errors.Errorf("duplicate partial signature for participant %d", p.Index)
		}
		seen[p.Index] = true
		if _, ok := sctx.factors[p.Index]; !ok {
			return nil, errors.Errorf("partial signature from participant %d without a recorded commitment", p.Index)
		}
		z, err := parseScalar(p.Z)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid partial signature for participant %d", p.Index)
		}
		s.Add(z)
	}

	sb := s.Bytes()
	return &Signature{
		R: hex.EncodeToString(sctx.rx[:]),
		S: hex.EncodeToString(sb[:]),
	}, nil
}
