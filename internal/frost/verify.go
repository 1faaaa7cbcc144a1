package frost

import (
	btcschnorr "github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

// Verify 按 BIP-340 规则验证聚合签名
func Verify(sig *Signature, msgHash []byte, groupKey string) (bool, error) {
	if sig == nil {
		return false, errors.New("signature is required")
	}
	if len(msgHash) != ScalarSize {
		return false, errors.Errorf("message hash must be %d bytes, got %d", ScalarSize, len(msgHash))
	}

	raw, err := sig.Serialize()
	if err != nil {
		return false, err
	}
	parsed, err := btcschnorr.ParseSignature(raw)
	if err != nil {
		return false, errors.Wrap(err, "failed to parse schnorr signature")
	}
	pub, err := ParseGroupKey(groupKey)
	if err != nil {
		return false, err
	}
	return parsed.Verify(msgHash, pub), nil
}

// VerifyPartial 校验单个部分签名 z_i*G == (D_i + rho_i*E_i) + lambda_i*c*Y_i
// 其中 Y_i 为参与者的公开份额，R 为奇 y 时承诺项整体取反
func VerifyPartial(partial *PartialSignature, msgHash []byte, commitments []NonceCommitment, publicShare string, groupKey string) (bool, error) {
	if partial == nil {
		return false, errors.New("partial signature is required")
	}

	sctx, err := newSigningContext(msgHash, commitments)
	if err != nil {
		return false, err
	}
	own, ok := sctx.commitmentFor(partial.Index)
	if !ok {
		return false, errors.Errorf("participant %d has no commitment in the signer set", partial.Index)
	}

	z, err := parseScalar(partial.Z)
	if err != nil {
		return false, errors.Wrap(err, "invalid partial signature scalar")
	}
	sharePoint, _, err := parsePoint(publicShare)
	if err != nil {
		return false, errors.Wrap(err, "invalid public share")
	}
	groupKeyX, err := parseGroupKeyX(groupKey)
	if err != nil {
		return false, err
	}
	lambda, err := lagrangeCoefficient(partial.Index, sctx.signerIndices())
	if err != nil {
		return false, err
	}
	c := challengeScalar(sctx.rx, groupKeyX, msgHash)

	// 左侧 z_i*G
	var lhs secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(z, &lhs)
	if lhs.Z.IsZero() {
		return false, nil
	}
	lhs.ToAffine()

	// 右侧承诺项 D_i + rho_i*E_i
	rho := sctx.factors[partial.Index]
	var weighted, commit secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(rho, &own.binding, &weighted)
	secp256k1.AddNonConst(&own.hiding, &weighted, &commit)
	if commit.Z.IsZero() {
		return false, nil
	}
	if sctx.negateNonces {
		commit.ToAffine()
		commit.Y.Negate(1)
		commit.Y.Normalize()
	}

	// 加上份额项 lambda_i*c*Y_i
	lc := new(secp256k1.ModNScalar).Set(lambda)
	lc.Mul(c)
	var scaledShare, rhs secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(lc, sharePoint, &scaledShare)
	secp256k1.AddNonConst(&commit, &scaledShare, &rhs)
	if rhs.Z.IsZero() {
		return false, nil
	}
	rhs.ToAffine()

	return lhs.X.Equals(&rhs.X) && lhs.Y.Equals(&rhs.Y), nil
}
