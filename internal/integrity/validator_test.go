package integrity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	duplicates []DuplicateNumber
	orphans    []RecordRef
	corrupt    []RecordRef
	err        error
}

func (f *fakeStore) DuplicateTicketNumbers(ctx context.Context) ([]DuplicateNumber, error) {
	return f.duplicates, f.err
}

func (f *fakeStore) OrphanedRegistrations(ctx context.Context) ([]RecordRef, error) {
	return f.orphans, f.err
}

func (f *fakeStore) CorruptIssuanceRows(ctx context.Context) ([]RecordRef, error) {
	return f.corrupt, f.err
}

func TestValidatorCleanReport(t *testing.T) {
	v := NewValidator(&fakeStore{})

	report, err := v.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Zero(t, report.DuplicateCount)
	assert.Zero(t, report.OrphanCount)
	assert.Zero(t, report.CorruptCount)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestValidatorReportsAllFindingClasses(t *testing.T) {
	store := &fakeStore{
		duplicates: []DuplicateNumber{
			{
				TicketNumber: "GP-SUM260831-ABCD",
				Owners:       2,
				References:   []string{"member:7", "registration:3"},
			},
		},
		orphans: []RecordRef{{RegistrationID: 11, Email: "paid@example.com"}},
		corrupt: []RecordRef{{RegistrationID: 12, Email: "broken@example.com"}},
	}

	report, err := NewValidator(store).Run(context.Background())

	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, 1, report.DuplicateCount)
	assert.Equal(t, 2, report.Duplicates[0].Owners)
	assert.Equal(t, 1, report.OrphanCount)
	assert.Equal(t, "paid@example.com", report.Orphans[0].Email)
	assert.Equal(t, 1, report.CorruptCount)
	assert.Equal(t, int64(12), report.Corrupt[0].RegistrationID)
}

func TestValidatorPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset by peer")
	v := NewValidator(&fakeStore{err: storeErr})

	report, err := v.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Nil(t, report)
}
