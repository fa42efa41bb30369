package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/accel"
	"github.com/relabs-tech/accelerometer_bridge/internal/config"
	"github.com/relabs-tech/accelerometer_bridge/internal/plugin"
)

func TestBuildWithMockSource(t *testing.T) {
	is := is.New(t)

	rt, err := Build(config.Default(), "test", zerolog.Nop())
	is.NoErr(err)
	defer rt.Close()

	ctx := context.Background()
	res := rt.Host.Dispatch(ctx, plugin.AccelerometerName, plugin.Call{Method: "isAvailable"})
	is.Equal(res.Data["isAvailable"], true)

	res = rt.Host.Dispatch(ctx, plugin.AccelerometerName, plugin.Call{Method: "startMeasurementUpdates"})
	is.True(res.OK())

	// the mock holds z at one g
	deadline := time.Now().Add(2 * time.Second)
	for {
		m, err := rt.Bridge.Measurement()
		is.NoErr(err)
		if m.Z != 0 {
			is.True(m.Z > 0.999 && m.Z < 1.001)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no sample from mock source")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rt.Host.Destroy()
	is.True(!rt.Bridge.UpdatesActive())
}

func TestBuildRejectsUnknownRate(t *testing.T) {
	is := is.New(t)

	cfg := config.Default()
	cfg.Sensor.Rate = "turbo"
	_, err := Build(cfg, "test", zerolog.Nop())
	is.True(err != nil)
}

func TestBuildWithAbsentMock(t *testing.T) {
	is := is.New(t)

	cfg := config.Default()
	cfg.Sensor.MockAbsent = true
	rt, err := Build(cfg, "test", zerolog.Nop())
	is.NoErr(err)
	defer rt.Close()

	res := rt.Host.Dispatch(context.Background(), plugin.AccelerometerName, plugin.Call{Method: "getMeasurement"})
	is.Equal(res.Error, "Accelerometer sensor not available on this device.")
}

type lifecycleCounter struct {
	mu              sync.Mutex
	pauses, resumes int
}

func (l *lifecycleCounter) Pause()  { l.mu.Lock(); l.pauses++; l.mu.Unlock() }
func (l *lifecycleCounter) Resume() { l.mu.Lock(); l.resumes++; l.mu.Unlock() }

func (l *lifecycleCounter) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pauses, l.resumes
}

func TestForwardLifecycle(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal)
	lc := &lifecycleCounter{}
	done := make(chan struct{})
	go func() {
		forwardLifecycle(ctx, sig, lc, zerolog.Nop())
		close(done)
	}()

	sig <- syscall.SIGTSTP
	sig <- syscall.SIGCONT
	sig <- syscall.SIGTSTP
	cancel()
	<-done

	p, r := lc.counts()
	is.Equal(p, 2)
	is.Equal(r, 1)
}

func TestFormatMeasurement(t *testing.T) {
	is := is.New(t)

	line := FormatMeasurement(accel.Measurement{Z: 1})
	is.True(strings.HasPrefix(line, "[ACCEL]"))
	is.True(strings.Contains(line, "z= +1.000"))
	is.True(strings.Contains(line, "|a|= 1.000"))
}

func TestConsolePrintsStreamedMeasurements(t *testing.T) {
	is := is.New(t)

	rt, err := Build(config.Default(), "test", zerolog.Nop())
	is.NoErr(err)
	defer rt.Close()

	srv := httptest.NewServer(rt.Router.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- RunConsole(ctx, srv.URL, out, zerolog.Nop()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "[ACCEL]") {
		if time.Now().After(deadline) {
			t.Fatal("console printed nothing")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	is.NoErr(<-done)
	is.True(rt.Bridge.UpdatesActive()) // console started updates
}

func TestConsoleFailsOnNonJSONResponse(t *testing.T) {
	is := is.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := RunConsole(context.Background(), srv.URL, io.Discard, zerolog.Nop())
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "502"))
}

func TestConsoleFailsOnRejectedStart(t *testing.T) {
	is := is.New(t)

	cfg := config.Default()
	cfg.Sensor.MockAbsent = true
	rt, err := Build(cfg, "test", zerolog.Nop())
	is.NoErr(err)
	defer rt.Close()

	srv := httptest.NewServer(rt.Router.Handler())
	defer srv.Close()

	err = RunConsole(context.Background(), srv.URL, io.Discard, zerolog.Nop())
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "not available"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
