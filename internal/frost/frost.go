// Package frost 实现家庭联邦使用的 secp256k1 两轮门限 Schnorr 签名。
// 聚合签名与 x-only 组公钥遵循 BIP-340 验证规则，可直接被事件中继生态消费。
// 密钥份额由受信发牌人预先分发，本包不包含分布式密钥生成。
package frost

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	btcschnorr "github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"
)

const (
	// ScalarSize 群阶标量的字节长度
	ScalarSize = 32
	// PointSize 压缩曲线点的字节长度
	PointSize = 33
	// GroupKeySize x-only 组公钥的字节长度
	GroupKeySize = 32
	// SignatureSize 聚合签名 R||s 的字节长度
	SignatureSize = 64

	// MinSigners 产生签名所需的最小签名者数量
	MinSigners = 2
	// MaxSigners 家庭联邦的签名者数量上限
	MaxSigners = 7
)

// NonceCommitment 参与者在第一轮广播的隐藏/绑定承诺（压缩点的十六进制编码）
type NonceCommitment struct {
	Index   uint32 `json:"index"`
	Hiding  string `json:"hiding"`
	Binding string `json:"binding"`
}

// PartialSignature 参与者在第二轮提交的部分签名
type PartialSignature struct {
	Index uint32 `json:"index"`
	Z     string `json:"z"`
}

// Signature 聚合后的 Schnorr 签名，R 为 x-only 坐标，s 为标量
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
}

// Serialize 输出 64 字节的 R||s 编码
func (s *Signature) Serialize() ([]byte, error) {
	r, err := hex.DecodeString(s.R)
	if err != nil {
		return nil, errors.Wrap(err, "invalid signature r encoding")
	}
	z, err := hex.DecodeString(s.S)
	if err != nil {
		return nil, errors.Wrap(err, "invalid signature s encoding")
	}
	if len(r) != ScalarSize || len(z) != ScalarSize {
		return nil, errors.Errorf("invalid signature component length: r=%d s=%d", len(r), len(z))
	}
	return append(r, z...), nil
}

// Hex 输出小写十六进制的 64 字节签名
func (s *Signature) Hex() (string, error) {
	raw, err := s.Serialize()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// ParseGroupKey 解析 x-only 组公钥（y 坐标取偶）
func ParseGroupKey(encoded string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "invalid group key encoding")
	}
	if len(raw) != GroupKeySize {
		return nil, errors.Errorf("invalid group key length: expected %d bytes, got %d", GroupKeySize, len(raw))
	}
	pub, err := btcschnorr.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid group key point")
	}
	return pub, nil
}

// ValidatePoint 校验压缩曲线点编码
func ValidatePoint(encoded string) error {
	_, _, err := parsePoint(encoded)
	return err
}

// ValidateScalar 校验标量编码（必须是规范的群阶内值）
func ValidateScalar(encoded string) error {
	_, err := parseScalar(encoded)
	return err
}

func parsePoint(encoded string) (*secp256k1.JacobianPoint, []byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid point encoding")
	}
	point, err := parsePointBytes(raw)
	if err != nil {
		return nil, nil, err
	}
	return point, raw, nil
}

func parsePointBytes(raw []byte) (*secp256k1.JacobianPoint, error) {
	if len(raw) != PointSize {
		return nil, errors.Errorf("invalid point length: expected %d bytes, got %d", PointSize, len(raw))
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid curve point")
	}
	var point secp256k1.JacobianPoint
	pub.AsJacobian(&point)
	return &point, nil
}

func encodePoint(point *secp256k1.JacobianPoint) (string, error) {
	if point.Z.IsZero() {
		return "", errors.New("cannot encode the point at infinity")
	}
	point.ToAffine()
	pub := secp256k1.NewPublicKey(&point.X, &point.Y)
	return hex.EncodeToString(pub.SerializeCompressed()), nil
}

func parseScalar(encoded string) (*secp256k1.ModNScalar, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "invalid scalar encoding")
	}
	if len(raw) != ScalarSize {
		return nil, errors.Errorf("invalid scalar length: expected %d bytes, got %d", ScalarSize, len(raw))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(raw); overflow {
		return nil, errors.New("scalar is not canonical for the group order")
	}
	return &s, nil
}

func parseSecretScalar(encoded string) (*secp256k1.ModNScalar, error) {
	s, err := parseScalar(encoded)
	if err != nil {
		return nil, err
	}
	if s.IsZero() {
		return nil, errors.New("secret scalar must not be zero")
	}
	return s, nil
}

func parseGroupKeyX(encoded string) ([32]byte, error) {
	var gx [32]byte
	pub, err := ParseGroupKey(encoded)
	if err != nil {
		return gx, err
	}
	copy(gx[:], btcschnorr.SerializePubKey(pub))
	return gx, nil
}
