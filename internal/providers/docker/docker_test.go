// ABOUTME: Unit tests for the Docker inventory provider.
// ABOUTME: Uses a fake Docker API to test listing, log fetching, and stream deframing.

package docker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDockerAPI struct {
	containers []container.Summary
	logs       map[string][]byte
	listErr    error
	logsErr    error

	lastLogsOptions container.LogsOptions
}

func (f *fakeDockerAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.containers, nil
}

func (f *fakeDockerAPI) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	f.lastLogsOptions = options
	data, ok := f.logs[containerID]
	if !ok {
		return nil, errors.New("no such container")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func newTestProvider(api dockerAPI) *Provider {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return &Provider{cli: api, logger: logger}
}

func frame(stream byte, payload string) []byte {
	header := []byte{stream, 0, 0, 0, 0, 0, 0, byte(len(payload))}
	return append(header, payload...)
}

func TestProviderName(t *testing.T) {
	p := newTestProvider(&fakeDockerAPI{})
	assert.Equal(t, "docker", p.Name())
}

func TestListRunning(t *testing.T) {
	api := &fakeDockerAPI{
		containers: []container.Summary{
			{ID: "abc123def456abc123def456", Names: []string{"/web-frontend"}},
			{ID: "fff000fff000fff000fff000", Names: nil},
		},
	}
	p := newTestProvider(api)

	refs, err := p.ListRunning(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "abc123def456abc123def456", refs[0].ID)
	assert.Equal(t, "web-frontend", refs[0].Name, "leading slash is trimmed")
	assert.Equal(t, "fff000fff000", refs[1].Name, "unnamed containers fall back to a short id")
}

func TestListRunningError(t *testing.T) {
	p := newTestProvider(&fakeDockerAPI{listErr: errors.New("daemon unavailable")})

	_, err := p.ListRunning(context.Background())
	assert.Error(t, err)
}

func TestFetchLogs(t *testing.T) {
	var logs []byte
	logs = append(logs, frame(1, "line one\n")...)
	logs = append(logs, frame(2, "line two\n")...)

	api := &fakeDockerAPI{logs: map[string][]byte{"abc": logs}}
	p := newTestProvider(api)

	got, err := p.FetchLogs(context.Background(), "abc", 50)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
	assert.Equal(t, "50", api.lastLogsOptions.Tail)
	assert.True(t, api.lastLogsOptions.ShowStdout)
	assert.True(t, api.lastLogsOptions.ShowStderr)
}

func TestFetchLogsError(t *testing.T) {
	p := newTestProvider(&fakeDockerAPI{logsErr: errors.New("gone")})

	_, err := p.FetchLogs(context.Background(), "abc", 50)
	assert.Error(t, err)
}

func TestDemultiplexLogs(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty",
			input: nil,
			want:  "",
		},
		{
			name:  "single stdout frame",
			input: frame(1, "hello"),
			want:  "hello",
		},
		{
			name:  "interleaved stdout and stderr",
			input: append(frame(1, "out"), frame(2, "err")...),
			want:  "outerr",
		},
		{
			name:  "tty stream passes through",
			input: []byte("plain tty output, no framing"),
			want:  "plain tty output, no framing",
		},
		{
			name:  "truncated trailing frame",
			input: append(frame(1, "ok"), []byte{1, 0, 0, 0, 0, 0, 0, 99, 'x'}...),
			want:  "okx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := demultiplexLogs(tt.input)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
