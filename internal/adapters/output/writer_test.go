package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/release-tagger/internal/domain"
)

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("closed pipe")
}

func TestWriter_WritePlan(t *testing.T) {
	tests := []struct {
		name       string
		plan       *domain.ReleasePlan
		wantOutput string
	}{
		{
			name: "stable channel in CI",
			plan: &domain.ReleasePlan{
				ImageName: "ghcr.io/org/app",
				Channel:   domain.ChannelStable,
				References: []string{
					"ghcr.io/org/app:stable-20240115",
					"ghcr.io/org/app:stable-2024011509",
					"ghcr.io/org/app:abc123",
					"ghcr.io/org/app:stable",
				},
				Push: true,
			},
			wantOutput: "image ghcr.io/org/app\n" +
				"channel stable\n" +
				"push true\n" +
				"tag ghcr.io/org/app:stable-20240115\n" +
				"tag ghcr.io/org/app:stable-2024011509\n" +
				"tag ghcr.io/org/app:abc123\n" +
				"tag ghcr.io/org/app:stable\n",
		},
		{
			name: "no channel locally",
			plan: &domain.ReleasePlan{
				ImageName:  "local/app",
				Channel:    domain.ChannelNone,
				References: []string{"local/app:abc123"},
			},
			wantOutput: "image local/app\nchannel none\npush false\ntag local/app:abc123\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writer := NewWriterWithOutput(&buf)

			err := writer.WritePlan(tt.plan)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, buf.String())
		})
	}
}

func TestWriter_ProgressLines(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriterWithOutput(&buf)

	require.NoError(t, writer.WriteBuilt("ghcr.io/org/app:abc123"))
	require.NoError(t, writer.WritePushed("ghcr.io/org/app:abc123"))
	require.NoError(t, writer.WriteLocalOnly())

	assert.Equal(t,
		"built ghcr.io/org/app:abc123\n"+
			"pushed ghcr.io/org/app:abc123\n"+
			"local build complete; push skipped (not running in CI)\n",
		buf.String())
}

func TestWriter_PropagatesWriteErrors(t *testing.T) {
	writer := NewWriterWithOutput(failingWriter{})

	assert.Error(t, writer.WritePlan(&domain.ReleasePlan{ImageName: "local/app"}))
	assert.Error(t, writer.WriteBuilt("local/app:abc"))
	assert.Error(t, writer.WritePushed("local/app:abc"))
	assert.Error(t, writer.WriteLocalOnly())
}

func TestNewWriter_UsesStdout(t *testing.T) {
	writer := NewWriter()
	assert.NotNil(t, writer)
	assert.NotNil(t, writer.out)
}
