package patientstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/patientrecords/internal/models"
)

type fakePatientClient struct {
	fetchCount int
	searched   []string
	put        []models.Patient
	err        error
}

func (f *fakePatientClient) FetchPatients(_ context.Context, count int) ([]models.Patient, error) {
	f.fetchCount = count
	return DemoPatients(), f.err
}

func (f *fakePatientClient) SearchPatients(_ context.Context, name string) ([]models.Patient, error) {
	f.searched = append(f.searched, name)
	return DemoPatients()[:1], f.err
}

func (f *fakePatientClient) PutPatient(_ context.Context, p models.Patient) error {
	f.put = append(f.put, p)
	return f.err
}

func TestFHIRBackendDelegates(t *testing.T) {
	client := &fakePatientClient{}
	backend := NewFHIRBackend(client, 0)

	all, err := backend.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, DefaultFHIRPageSize, client.fetchCount)

	found, err := backend.Search(context.Background(), " Smith ")
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, []string{"smith"}, client.searched)

	require.NoError(t, backend.Create(context.Background(), models.Patient{ID: "x"}))
	assert.Equal(t, "x", client.put[0].ID)
}

func TestFHIRBackendBlankSearchLists(t *testing.T) {
	client := &fakePatientClient{}
	backend := NewFHIRBackend(client, 10)

	_, err := backend.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, client.searched)
	assert.Equal(t, 10, client.fetchCount)
}

func TestFHIRBackendWrapsErrors(t *testing.T) {
	backend := NewFHIRBackend(&fakePatientClient{err: errors.New("boom")}, 10)

	_, err := backend.Search(context.Background(), "a")
	assert.ErrorContains(t, err, "boom")
	assert.Error(t, backend.Create(context.Background(), models.Patient{}))
}
