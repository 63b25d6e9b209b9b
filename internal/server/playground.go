package server

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/lawnchairsociety/tilewave/internal/config"
	"github.com/lawnchairsociety/tilewave/internal/logger"
	"github.com/lawnchairsociety/tilewave/internal/sample"
	"github.com/lawnchairsociety/tilewave/internal/store"
	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// Recorder persists sessions and their snapshots. *store.Store implements it.
type Recorder interface {
	CreateSession(name string, s wfc.Sample, seed int64, sess *wfc.Session) (*store.SessionRecord, error)
	SaveSnapshot(sessionID string, step int, g *wfc.Grid) (int64, error)
}

// Playground is the state of one connected client: a solver session over a
// named sample that the client steps through with commands. A Playground is
// owned by its connection's read loop and is not safe for concurrent use.
type Playground struct {
	lib      *sample.Library
	solver   config.SolverConfig
	maxRun   int
	recorder Recorder
	log      *slog.Logger

	name   string
	sample wfc.Sample
	seed   int64
	resets int

	sess     *wfc.Session
	record   *store.SessionRecord
	recorded int // Highest step saved to the recorder
}

// NewPlayground starts a session over the configured sample.
// recorder may be nil to disable recording.
func NewPlayground(lib *sample.Library, solver config.SolverConfig, maxRun int, recorder Recorder, log *slog.Logger) (*Playground, error) {
	if log == nil {
		log = logger.With()
	}
	p := &Playground{
		lib:      lib,
		solver:   solver,
		maxRun:   maxRun,
		recorder: recorder,
		log:      log,
	}
	if err := p.load(solver.Sample); err != nil {
		return nil, err
	}
	if err := p.restart(p.nextSeed()); err != nil {
		return nil, err
	}
	return p, nil
}

// Session returns the live solver session.
func (p *Playground) Session() *wfc.Session {
	return p.sess
}

// SessionID returns the recorder's ID for the current session, or "".
func (p *Playground) SessionID() string {
	if p.record == nil {
		return ""
	}
	return p.record.ID
}

func (p *Playground) load(name string) error {
	s, err := p.lib.Get(name)
	if err != nil {
		return err
	}
	p.name = name
	p.sample = s
	return nil
}

// nextSeed uses the configured seed for the first session and offsets it for
// each reset; with no configured seed it draws from the clock.
func (p *Playground) nextSeed() int64 {
	defer func() { p.resets++ }()
	if p.solver.Seed == 0 {
		return time.Now().UnixNano()
	}
	return p.solver.Seed + int64(p.resets*1000)
}

// restart builds a fresh session over the current sample
func (p *Playground) restart(seed int64) error {
	cat, err := wfc.BuildCatalog(p.sample, p.solver.TileWidth, p.solver.TileHeight)
	if err != nil {
		return err
	}
	sess, err := wfc.NewSession(cat, nil, p.solver.OutputWidth, p.solver.OutputHeight,
		rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	p.sess = sess
	p.seed = seed
	p.record = nil
	p.recorded = -1

	if p.recorder != nil {
		rec, err := p.recorder.CreateSession(p.name, p.sample, seed, sess)
		if err != nil {
			p.log.Warn("Failed to record session", "sample", p.name, "error", err)
		} else {
			p.record = rec
			p.save()
		}
	}
	p.log.Info("Session started", "sample", p.name, "seed", seed,
		"tiles", cat.Len(), "session_id", p.SessionID())
	return nil
}

// save records the newest snapshot if it has not been recorded yet
func (p *Playground) save() {
	if p.record == nil {
		return
	}
	step := p.sess.Len() - 1
	if step <= p.recorded {
		return
	}
	g, err := p.sess.Snapshot(step)
	if err != nil {
		return
	}
	if _, err := p.recorder.SaveSnapshot(p.record.ID, step, g); err != nil {
		p.log.Warn("Failed to record snapshot", "session_id", p.record.ID, "step", step, "error", err)
		return
	}
	p.recorded = step
}

// advance takes one step and records it when it computed a new snapshot
func (p *Playground) advance() (*wfc.StepResult, bool, error) {
	result, advanced, err := p.sess.AdvanceStep()
	if err != nil {
		return nil, false, err
	}
	if result != nil {
		p.save()
	}
	return result, advanced, nil
}

// Execute runs one command and returns the frame to send back.
func (p *Playground) Execute(cmd Command) *Frame {
	var (
		result *wfc.StepResult
		msg    string
		err    error
	)

	switch cmd.Kind {
	case CmdState:
	case CmdAdvance:
		var advanced bool
		result, advanced, err = p.advance()
		if err == nil && !advanced {
			msg = "grid is complete"
		}
	case CmdBack:
		if !p.sess.StepBack() {
			msg = "already at the first snapshot"
		}
	case CmdRun:
		result, msg, err = p.run(cmd.N)
	case CmdReset:
		seed := p.nextSeed()
		if cmd.HasSeed {
			seed = cmd.Seed
		}
		err = p.restart(seed)
	case CmdSample:
		prevName, prevSample := p.name, p.sample
		if err = p.load(cmd.Name); err == nil {
			if err = p.restart(p.nextSeed()); err != nil {
				// Keep serving the previous sample
				p.name, p.sample = prevName, prevSample
			}
		}
	case CmdHelp:
		msg = helpText
	}

	f := p.Frame()
	f.Command = cmd.Kind.String()
	f.Message = msg
	if result != nil {
		f.Collapsed = &CollapseView{X: result.X, Y: result.Y, Tile: result.Tile}
	}
	if err != nil {
		f.setError(err)
		if errors.Is(err, wfc.ErrContradiction) {
			p.log.Info("Contradiction", "sample", p.name, "seed", p.seed,
				"step", p.sess.Len(), "error", err)
		}
	}
	return f
}

// run advances up to n steps, capped by the server limit; n == 0 means
// until complete within that cap
func (p *Playground) run(n int) (*wfc.StepResult, string, error) {
	limit := n
	if p.maxRun > 0 && (limit == 0 || limit > p.maxRun) {
		limit = p.maxRun
	}

	var last *wfc.StepResult
	taken := 0
	for limit <= 0 || taken < limit {
		result, advanced, err := p.advance()
		if err != nil {
			return last, fmt.Sprintf("ran %d steps", taken), err
		}
		if !advanced {
			break
		}
		if result != nil {
			last = result
		}
		taken++
	}

	msg := fmt.Sprintf("ran %d steps", taken)
	if n > 0 && limit < n {
		msg += fmt.Sprintf(" (capped at %d)", limit)
	}
	return last, msg, nil
}

// Frame describes the session at its current position.
func (p *Playground) Frame() *Frame {
	f := newFrame(p.sess.Current(), p.sess.Catalog)
	f.Session = p.SessionID()
	f.Sample = p.name
	f.Seed = p.seed
	f.Position = p.sess.Position()
	f.Length = p.sess.Len()
	return f
}
