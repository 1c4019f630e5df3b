package probe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSite struct {
	name string
	err  error
}

func (f fakeSite) SiteName(context.Context) (string, error) { return f.name, f.err }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestRun_KeepsOrderAndTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	hang := Probe{
		Name:    "hang",
		Timeout: 10 * time.Millisecond,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	rep := Run(context.Background(),
		MediaWiki(fakeSite{name: "Wikiversity"}),
		SPARQL(fakePinger{err: errors.New("503")}),
		hang,
	)

	require.Len(t, rep, 3)
	assert.Equal(t, "MediaWiki API", rep[0].Name)
	assert.NoError(t, rep[0].Err)
	assert.Error(t, rep[1].Err)
	assert.ErrorIs(t, rep[2].Err, context.DeadlineExceeded)

	// Neither the SPARQL probe nor the ad hoc one is critical
	assert.NoError(t, rep.Err())
}

func TestReport_Err(t *testing.T) {
	down := errors.New("connection refused")
	rep := Run(context.Background(),
		MediaWiki(fakeSite{err: down}),
		MediaWiki(fakeSite{}),
		SPARQL(fakePinger{}),
	)

	err := rep.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "empty sitename")
}

func TestReport_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Report{
		{Name: "MediaWiki API", Critical: true},
		{Name: "Wikidata SPARQL", Err: errors.New("timeout")},
		{Name: "Login", Critical: true, Err: errors.New("bad password")},
	}.Log(logger)

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="Startup check passed" probe="MediaWiki API"`)
	assert.Contains(t, out, `level=WARN msg="Startup check failed" probe="Wikidata SPARQL"`)
	assert.Contains(t, out, `level=ERROR msg="Startup check failed" probe=Login`)
}
