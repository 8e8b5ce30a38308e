package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-prayer/internal/config"
	"github.com/tartampluch/go-prayer/internal/engine"
)

func TestParse(t *testing.T) {
	lat, lon := 51.5074, -0.1278

	tests := []struct {
		name    string
		input   string
		want    engine.Settings
		wantErr string
	}{
		{
			name:  "Empty file gives defaults",
			input: "",
			want:  engine.DefaultSettings(),
		},
		{
			name: "City configuration",
			input: `
city: London
country: UK
use_device_location: false
school: 0
notifications_enabled: true
`,
			want: engine.Settings{
				City: "London", Country: "UK", School: 0,
				NotificationsEnabled: true, WidgetEnabled: true,
			},
		},
		{
			name: "Coordinates keep unspecified defaults",
			input: `
latitude: 51.5074
longitude: -0.1278
`,
			want: engine.Settings{
				Latitude: &lat, Longitude: &lon,
				UseDeviceLocation: true, School: 1, WidgetEnabled: true,
			},
		},
		{
			name:    "Invalid school",
			input:   "school: 2\n",
			wantErr: config.ErrSettingsSchool,
		},
		{
			name:    "Unknown key",
			input:   "citty: London\n",
			wantErr: config.ErrUnknownKey,
		},
		{
			name:    "Malformed YAML",
			input:   "city: [London\n",
			wantErr: config.ErrSettingsParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultSettings(), got)
}

func TestFileSource_FailedReloadKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultSettingsFile)
	require.NoError(t, os.WriteFile(path, []byte("city: Paris\ncountry: France\n"), config.FilePermUserRW))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	assert.Equal(t, "Paris", src.Settings().City)

	require.NoError(t, os.WriteFile(path, []byte("school: 9\n"), config.FilePermUserRW))
	assert.Error(t, src.Reload())
	assert.Equal(t, "Paris", src.Settings().City)
}

func TestWatcher_ReloadsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultSettingsFile)
	require.NoError(t, os.WriteFile(path, []byte("city: Paris\ncountry: France\n"), config.FilePermUserRW))

	src, err := NewFileSource(path)
	require.NoError(t, err)

	var calls atomic.Int32
	w := NewWatcher(src, func() { calls.Add(1) })
	w.Debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Unrelated files in the same directory are ignored.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), config.FilePermUserRW)
		_ = os.WriteFile(path, []byte("city: Cairo\ncountry: Egypt\n"), config.FilePermUserRW)
		return src.Settings().City == "Cairo"
	}, 5*time.Second, 100*time.Millisecond)

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
