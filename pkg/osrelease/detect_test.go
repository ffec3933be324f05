package osrelease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kvesta/imagescan/pkg/inspector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	files map[string]string
	err   error
	cmds  [][]string
}

func (f *fakeRunner) RunEphemeral(ctx context.Context, ref string, cmd []string, timeout time.Duration) (*inspector.RunResult, error) {
	f.cmds = append(f.cmds, cmd)
	if f.err != nil {
		return nil, f.err
	}

	content, ok := f.files[cmd[1]]
	if !ok {
		return &inspector.RunResult{ExitCode: 1}, nil
	}
	return &inspector.RunResult{Stdout: content}, nil
}

func TestDetectOs(t *testing.T) {
	type args struct {
		files map[string]string
	}

	tests := []struct {
		name       string
		args       args
		wantID     string
		wantString string
		wantDebian bool
	}{
		{
			name: "alpine",
			args: args{files: map[string]string{
				"/etc/os-release": "NAME=\"Alpine Linux\"\nID=alpine\nVERSION_ID=3.16.2\n",
			}},
			wantID:     "alpine",
			wantString: "Alpine Linux 3.16.2",
		},
		{
			name: "debianFallbackPath",
			args: args{files: map[string]string{
				"/usr/lib/os-release": "# comment\nPRETTY_NAME=\"Debian GNU/Linux 11 (bullseye)\"\nNAME=\"Debian GNU/Linux\"\nID=debian\nVERSION_ID=\"11\"\n",
			}},
			wantID:     "debian",
			wantString: "Debian GNU/Linux 11",
			wantDebian: true,
		},
		{
			name: "centos",
			args: args{files: map[string]string{
				"/etc/centos-release": "CentOS Linux release 7.9.2009 (Core)",
			}},
			wantID:     "centos",
			wantString: "CentOS Linux",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectOs(context.Background(), &fakeRunner{files: tt.args.files}, "img")
			require.NoError(t, err)

			if got.OID != tt.wantID {
				t.Errorf("DetectOs() id = %s, want %s", got.OID, tt.wantID)
			}
			assert.Contains(t, got.String(), tt.wantString)
			assert.Equal(t, tt.wantDebian, got.IsDebianFamily())
		})
	}
}

func TestDetectOsUnknown(t *testing.T) {
	rt := &fakeRunner{files: map[string]string{}}

	_, err := DetectOs(context.Background(), rt, "scratch")
	assert.ErrorIs(t, err, ErrUnknownOS)
	assert.Len(t, rt.cmds, len(paths))
}

func TestDetectOsRuntimeError(t *testing.T) {
	rt := &fakeRunner{err: errors.New("daemon gone")}

	_, err := DetectOs(context.Background(), rt, "debian")
	assert.Error(t, err)
	assert.Len(t, rt.cmds, 1)
}
