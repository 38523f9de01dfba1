package himitsu

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultSocketPath returns the rendezvous path a Himitsu binary binds or
// dials when the embedder doesn't supply one: <temp-dir>/himitsu.<pid>,
// matching the original daemon's convention one-for-one. Every one of
// himitsud, the pre-commit checker and the stdin shim shares this so the
// daemon and its clients can rendezvous without an explicit --socket flag.
func DefaultSocketPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("himitsu.%d", os.Getpid()))
}

// Dispatcher owns the listener and the control channel. It is the only
// thing that accepts connections and the only thing that mutates the
// Handler's configuration/silencer/findings in response to out-of-band
// commands; everything else about a connection's lifecycle is delegated to
// a per-connection goroutine.
type Dispatcher struct {
	path       string
	instanceID uuid.UUID
	handler    *Handler
	control    chan ControlMessage
	listener   net.Listener
}

// NewDispatcher binds a Unix-domain rendezvous point at path. It is an
// error for something to already be bound there; callers are responsible
// for cleaning up stale endpoints before calling this. Each Dispatcher
// mints a random instance ID, attached to every log line it emits, so
// operators can correlate daemon restarts in aggregated logs.
func NewDispatcher(path string, handler *Handler) (*Dispatcher, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, &IoError{Err: err}
	}

	instanceID := uuid.New()
	log.Info().Str("instance_id", instanceID.String()).Str("socket", path).Msg("himitsu dispatcher starting")

	return &Dispatcher{
		path:       path,
		instanceID: instanceID,
		handler:    handler,
		control:    make(chan ControlMessage),
		listener:   listener,
	}, nil
}

// Control returns the channel embedders send out-of-band commands on.
func (d *Dispatcher) Control() chan<- ControlMessage { return d.control }

// Run accepts connections and services the control channel until Shutdown
// is received or the control channel is closed. It never returns an error
// for a single bad connection; those are logged and the offending
// connection is closed.
func (d *Dispatcher) Run() {
	defer os.Remove(d.path)

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult)

	go func() {
		for {
			conn, err := d.listener.Accept()
			accepted <- acceptResult{conn, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case res := <-accepted:
			if res.err != nil {
				log.Debug().Err(res.err).Msg("listener accept failed, dispatcher stopping")
				return
			}
			go d.serveConnection(res.conn, uuid.New())

		case msg := <-d.control:
			if d.applyControlMessage(msg) {
				d.listener.Close()
				return
			}
		}
	}
}

// applyControlMessage performs one control operation and reports whether
// the dispatcher should stop accepting and return.
func (d *Dispatcher) applyControlMessage(msg ControlMessage) (shutdown bool) {
	switch {
	case msg.Shutdown:
		return true

	case msg.Update:
		if err := d.handler.UpdateConfiguration(); err != nil {
			log.Error().Err(err).Msg("configuration reload failed, keeping previous configuration")
		}

	case msg.SilenceOnce:
		d.handler.SilenceOnce()

	case msg.SilenceSet != nil:
		d.handler.SilenceSet(msg.SilenceSet.DurationSecs)

	case msg.FetchLastFoundSecrets != nil:
		msg.FetchLastFoundSecrets.Reply <- d.handler.FetchFindings()

	case msg.ClearFoundSecrets:
		d.handler.ClearFindings()
	}
	return false
}

// serveConnection loops parse -> handle -> respond on conn until EOF or any
// I/O error, then closes it. Errors here are scoped to this connection and
// never reach the dispatcher loop or other connections.
func (d *Dispatcher) serveConnection(conn net.Conn, connID uuid.UUID) {
	defer conn.Close()
	logger := log.With().Str("instance_id", d.instanceID.String()).Str("conn_id", connID.String()).Logger()

	for {
		req, err := ReadRequest(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var ioErr *IoError
			if errors.As(err, &ioErr) && errors.Is(ioErr.Err, io.EOF) {
				return
			}
			logger.Debug().Err(err).Msg("connection read failed")
			return
		}

		resp := d.handler.Handle(req)

		if err := WriteResponse(conn, resp); err != nil {
			logger.Debug().Err(err).Msg("connection write failed")
			return
		}
	}
}
