// Package store provides the two RoomStore backings and the room-code
// generator they share.
package store

import (
	"crypto/rand"

	"github.com/Rohan357015/raja-mantri-game/internal/domain"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxCodeAttempts bounds the generate-and-check loop; with 36^6 codes
// the limit is only reachable when the store is effectively full.
const maxCodeAttempts = 8

// CodeGenerator produces candidate room codes. A candidate is not
// unique on its own: the store pairs the generator with a lookup and
// retries on collision before a code is assigned.
type CodeGenerator interface {
	Generate() string
}

type randCodeGenerator struct{}

// NewCodeGenerator returns the crypto/rand backed generator producing
// codes matching ^[A-Z0-9]{6}$.
func NewCodeGenerator() CodeGenerator {
	return randCodeGenerator{}
}

func (randCodeGenerator) Generate() string {
	b := make([]byte, domain.CodeLen)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
