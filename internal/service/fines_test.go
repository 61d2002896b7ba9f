package service

import (
	"testing"

	"github.com/punchamoorthee/libraryops/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPayableStatus(t *testing.T) {
	assert.NoError(t, payableStatus(domain.FinePending))
	assert.ErrorIs(t, payableStatus(domain.FinePaid), ErrFineAlreadyPaid)
	assert.ErrorIs(t, payableStatus(domain.FineWaived), ErrFineWaived)
}

// Waived is terminal: a second waive must be rejected, not decrement the
// member's balance again.
func TestWaivableStatus(t *testing.T) {
	assert.NoError(t, waivableStatus(domain.FinePending))
	assert.ErrorIs(t, waivableStatus(domain.FinePaid), ErrCannotWaivePaid)
	assert.ErrorIs(t, waivableStatus(domain.FineWaived), ErrFineWaived)
}
