package util_test

import (
	"testing"

	"github.com/jmehdipour/fax-gateway/internal/util"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fax.pdf", util.SanitizeFilename("fax.pdf"))
	assert.Equal(t, "fax.pdf", util.SanitizeFilename("../../etc/fax.pdf"))
	assert.Equal(t, "fax.pdf", util.SanitizeFilename(`C:\inbox\fax.pdf`))
	assert.Equal(t, "my_fax_1_.pdf", util.SanitizeFilename("my fax (1).pdf"))
	assert.Equal(t, "", util.SanitizeFilename("..."))
}

func TestAllowedAttachment(t *testing.T) {
	t.Parallel()

	assert.True(t, util.AllowedAttachment("fax.pdf"))
	assert.True(t, util.AllowedAttachment("notes.TXT"))
	assert.False(t, util.AllowedAttachment("report.exe"))
	assert.False(t, util.AllowedAttachment("noextension"))
	assert.False(t, util.AllowedAttachment("archive.pdf.zip"))
}
