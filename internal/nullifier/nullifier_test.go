package nullifier

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive_Deterministic(t *testing.T) {
	first := Derive("r1", "b1", "m1")
	second := Derive("r1", "b1", "m1")
	assert.Equal(t, first, second)
}

func TestDerive_BallotScoped(t *testing.T) {
	forBallotOne := Derive("r1", "b1", "m1")
	forBallotTwo := Derive("r1", "b2", "m1")
	assert.NotEqual(t, forBallotOne, forBallotTwo)
}

func TestDerive_DistinctResidents(t *testing.T) {
	assert.NotEqual(t, Derive("r1", "b1", "m1"), Derive("r2", "b1", "m1"))
}

func TestDerive_LowercaseHex(t *testing.T) {
	token := Derive("resident", "ballot", "secret")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)
}
