package frost

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// 绑定因子的域分隔标签
var tagBindingFactor = []byte("FROST-secp256k1-BIP340-v1/rho")

// hashToScalar 将带标签的哈希映射为群阶内的标量
func hashToScalar(tag []byte, chunks ...[]byte) *secp256k1.ModNScalar {
	digest := chainhash.TaggedHash(tag, chunks...)
	var s secp256k1.ModNScalar
	s.SetByteSlice(digest[:])
	return &s
}

// challengeScalar BIP-340 挑战值 e = H(R.x || P.x || m)
func challengeScalar(rx [32]byte, groupKeyX [32]byte, msgHash []byte) *secp256k1.ModNScalar {
	return hashToScalar(chainhash.TagBIP0340Challenge, rx[:], groupKeyX[:], msgHash)
}

func indexBytes(index uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], index)
	return buf[:]
}
