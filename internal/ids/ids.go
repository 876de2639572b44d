package ids

import (
	gonanoid "github.com/matoous/go-nanoid"
)

// Alphabet avoids look-alike characters so IDs can be read out over the phone.
const Alphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

const Length = 12

// New returns a random public identifier.
func New() (string, error) {
	return gonanoid.Generate(Alphabet, Length)
}
