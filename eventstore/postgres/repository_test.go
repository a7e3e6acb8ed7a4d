package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stockpulse/lib-core/log"
)

func TestNewRepository_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRepository(nil, log.NewNop())
	assert.ErrorIs(t, err, ErrConnectionRequired)
}
