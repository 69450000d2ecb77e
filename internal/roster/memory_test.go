package roster

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consult-assist-server/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testPatient("a"), nil, testPatient("b"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	p, err := store.GetPatient(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Test Patient a", p.Name)

	_, err = store.GetPatient(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)

	updated := testPatient("a")
	updated.Name = "Renamed"
	require.NoError(t, store.Save(ctx, updated))
	require.NoError(t, store.Save(ctx, testPatient("c")))

	all, err := store.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Renamed", all[0].Name)
	assert.Equal(t, "c", all[2].ID)

	require.NoError(t, store.Delete(ctx, "b"))
	assert.ErrorIs(t, store.Delete(ctx, "b"), domain.ErrPatientNotFound)

	all, err = store.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Error(t, store.Save(ctx, &domain.PatientProfile{}))
}

func TestMemoryStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	source := NewMemoryStore(SamplePatients()...)

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	target := NewMemoryStore()
	imported, skipped, err := target.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 5, imported)
	assert.Equal(t, 0, skipped)
}
