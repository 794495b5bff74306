package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

const (
	discriminatorLen = 8
	pubkeyLen        = 32
)

// Identity is a decoded UserIdentity account.
type Identity struct {
	// Authority is the owner wallet, lowercase hex.
	Authority        string `json:"authority"`
	Archetype        string `json:"archetype"`
	Karma            uint64 `json:"karma"`
	AbandonmentCount int    `json:"abandonment_count"`
	Flagged          bool   `json:"is_flagged"`
	Bump             uint8  `json:"bump"`
}

// borshReader walks a Borsh buffer. Reads past the end set ok to false and
// return zero values.
type borshReader struct {
	data []byte
	off  int
	ok   bool
}

func (r *borshReader) take(n int) []byte {
	if !r.ok || n < 0 || r.off+n > len(r.data) {
		r.ok = false
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *borshReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *borshReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *borshReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *borshReader) str() string {
	n := r.u32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// ParseIdentity decodes the Anchor layout
//
//	discriminator [8]
//	authority     [32]
//	archetype     string
//	skill_weights vec<(string, u16)>
//	karma         u64
//	endorsements  vec<([32], string)>
//	abandonment   u8
//	is_flagged    bool
//	bump          u8
//
// It returns nil when data is truncated or belongs to a smaller account.
func ParseIdentity(data []byte) *Identity {
	if len(data) < discriminatorLen+pubkeyLen+4 {
		return nil
	}
	r := &borshReader{data: data, off: discriminatorLen, ok: true}

	id := &Identity{}
	id.Authority = hex.EncodeToString(r.take(pubkeyLen))
	id.Archetype = r.str()

	for n := r.u32(); r.ok && n > 0; n-- {
		r.str()
		r.take(2)
	}
	id.Karma = r.u64()
	for n := r.u32(); r.ok && n > 0; n-- {
		r.take(pubkeyLen)
		r.str()
	}

	id.AbandonmentCount = int(r.u8())
	id.Flagged = r.u8() != 0
	id.Bump = r.u8()
	if !r.ok {
		return nil
	}
	return id
}
