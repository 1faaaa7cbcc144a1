package frost

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// KeyShare 参与者持有的私钥份额与公开材料
type KeyShare struct {
	Index          uint32 `json:"index"`
	Secret         string `json:"secret"`
	PublicShare    string `json:"public_share"`
	GroupPublicKey string `json:"group_public_key"`
}

// Deal 一次受信发牌的完整输出
type Deal struct {
	Threshold      int        `json:"threshold"`
	Participants   int        `json:"participants"`
	GroupPublicKey string     `json:"group_public_key"`
	Shares         []KeyShare `json:"shares"`
}

// DealShares 受信发牌，生成 t-of-n 门限密钥份额与偶 y 坐标的组公钥。
// 参与者编号从 1 开始，与份额在返回切片中的位置一致。
func DealShares(threshold, participants int) (*Deal, error) {
	if participants < MinSigners || participants > MaxSigners {
		return nil, errors.Errorf("participant count must be between %d and %d, got %d", MinSigners, MaxSigners, participants)
	}
	if threshold < MinSigners || threshold > participants {
		return nil, errors.Errorf("threshold must be between %d and %d, got %d", MinSigners, participants, threshold)
	}

	// 1. 随机多项式 f(x) = a_0 + a_1*x + ... + a_{t-1}*x^{t-1}
	coeffs := make([]*secp256k1.ModNScalar, threshold)
	for i := range coeffs {
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate polynomial coefficient")
		}
		coeffs[i] = new(secp256k1.ModNScalar).Set(&priv.Key)
	}

	// 2. 组公钥必须是偶 y 坐标，必要时整体取反多项式
	var groupPoint secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(coeffs[0], &groupPoint)
	groupPoint.ToAffine()
	if groupPoint.Y.IsOdd() {
		for _, c := range coeffs {
			c.Negate()
		}
		var flipped secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(coeffs[0], &flipped)
		flipped.ToAffine()
		groupPoint = flipped
	}
	var gx [32]byte
	groupPoint.X.PutBytesUnchecked(gx[:])
	groupKey := hex.EncodeToString(gx[:])

	// 3. 份额 s_i = f(i)
	shares := make([]KeyShare, 0, participants)
	for i := 1; i <= participants; i++ {
		secret := evalPolynomial(coeffs, uint32(i))
		var sharePoint secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(secret, &sharePoint)
		pubHex, err := encodePoint(&sharePoint)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode public share %d", i)
		}
		sb := secret.Bytes()
		shares = append(shares, KeyShare{
			Index:          uint32(i),
			Secret:         hex.EncodeToString(sb[:]),
			PublicShare:    pubHex,
			GroupPublicKey: groupKey,
		})
	}

	return &Deal{
		Threshold:      threshold,
		Participants:   participants,
		GroupPublicKey: groupKey,
		Shares:         shares,
	}, nil
}

// evalPolynomial 霍纳法求 f(x)
func evalPolynomial(coeffs []*secp256k1.ModNScalar, x uint32) *secp256k1.ModNScalar {
	xs := new(secp256k1.ModNScalar).SetInt(x)
	result := new(secp256k1.ModNScalar)
	for i := len(coeffs) - 1; i >= 0; i-- {
		result.Mul(xs)
		result.Add(coeffs[i])
	}
	return result
}
