package commonGo

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvFile(t *testing.T) {
	t.Run("values from file", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		require.Nil(t, os.WriteFile(envFile, []byte("TEST_DASHBOARD_KEY=abc\n"), 0600))
		t.Setenv("TEST_DASHBOARD_KEY", "")
		_ = os.Unsetenv("TEST_DASHBOARD_KEY")

		m := map[string]string{"TEST_DASHBOARD_KEY": ""}
		err := ReadEnvFile(envFile, m)
		require.Nil(t, err)
		assert.Equal(t, "abc", m["TEST_DASHBOARD_KEY"])
	})
	t.Run("missing file falls back to the environment", func(t *testing.T) {
		t.Setenv("TEST_DASHBOARD_OTHER", "xyz")

		m := map[string]string{"TEST_DASHBOARD_OTHER": ""}
		err := ReadEnvFile(filepath.Join(t.TempDir(), "missing.env"), m)
		require.Nil(t, err)
		assert.Equal(t, "xyz", m["TEST_DASHBOARD_OTHER"])
	})
	t.Run("unset key should error", func(t *testing.T) {
		m := map[string]string{"TEST_DASHBOARD_NEVER_SET": ""}
		err := ReadEnvFile(filepath.Join(t.TempDir(), "missing.env"), m)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "TEST_DASHBOARD_NEVER_SET")
	})
}

func TestAttachFileLogger(t *testing.T) {
	log := logger.GetOrCreate("test")

	handler, err := AttachFileLogger(log, ArgsFileLogger{SaveLogFile: false})
	require.Nil(t, err)
	assert.Nil(t, handler)

	handler, err = AttachFileLogger(log, ArgsFileLogger{
		WorkingDir:       t.TempDir(),
		DefaultLogsPath:  "logs",
		LogFilePrefix:    "dashboard",
		SaveLogFile:      true,
		LifeSpan:         time.Hour,
		LifeSpanSizeInMB: 10,
	})
	require.Nil(t, err)
	require.NotNil(t, handler)
	assert.Nil(t, handler.Close())
}

func TestCronJobStarter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := int32(0)
	CronJobStarter(ctx, func(ctx context.Context) {
		atomic.AddInt32(&calls, 1)
	}, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 3
	}, time.Second, time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	afterCancel := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, afterCancel, atomic.LoadInt32(&calls))
}
