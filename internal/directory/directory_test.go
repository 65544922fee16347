package directory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmehdipour/fax-gateway/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_Lookups(t *testing.T) {
	t.Parallel()

	d := directory.New([]directory.Entry{
		{PhoneNumber: "+15145551234", Email: "Jane@Example.com"},
		{PhoneNumber: "+15145556789", Email: "bob@example.com"},
	})

	email, ok := d.EmailFor("+15145551234")
	require.True(t, ok)
	assert.Equal(t, "Jane@Example.com", email)

	_, ok = d.EmailFor("+10000000000")
	assert.False(t, ok)

	phone, ok := d.PhoneFor("JANE@example.COM")
	require.True(t, ok)
	assert.Equal(t, "+15145551234", phone)

	_, ok = d.PhoneFor("nobody@example.com")
	assert.False(t, ok)

	assert.Equal(t, 2, d.Len())
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.json")
	payload := `[{"phone_number": "+15145551234", "email": "jane@example.com"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	d, err := directory.Load(path)
	require.NoError(t, err)

	phone, ok := d.PhoneFor("jane@example.com")
	require.True(t, ok)
	assert.Equal(t, "+15145551234", phone)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := directory.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = directory.Load(path)
	require.Error(t, err)
}
