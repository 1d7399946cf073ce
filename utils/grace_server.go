package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second

	inheritEnvKey   = "YATUBE_INHERIT_LISTENER"
	inheritEnvValue = inheritEnvKey + "=1"
	inheritedFD     = 3
)

// Server is an http.Server that drains on SIGINT/SIGTERM and hands its
// listening socket to a fresh process on SIGUSR2.
type Server struct {
	*http.Server

	ShutdownTimeout time.Duration

	listener  net.Listener
	inherited bool
	signals   chan os.Signal
	done      chan struct{}
}

// NewServer builds a Server around handler. Zero timeouts use the package defaults.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
		ShutdownTimeout: defaultShutdownTimeout,
		inherited:       os.Getenv(inheritEnvKey) != "",
		signals:         make(chan os.Signal, 1),
		done:            make(chan struct{}),
	}
}

// ListenAndServe serves until a shutdown signal has been handled.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := srv.listen(addr)
	if err != nil {
		return err
	}
	srv.listener = ln

	go srv.handleSignals()
	err = srv.Server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-srv.done
		return nil
	}
	return err
}

func (srv *Server) listen(addr string) (net.Listener, error) {
	if srv.inherited {
		ln, err := net.FileListener(os.NewFile(inheritedFD, "listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		Sugar.Infow("serving on inherited listener", "addr", ln.Addr().String())
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	signal.Notify(srv.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(srv.signals)

	for sig := range srv.signals {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			Sugar.Infow("shutting down HTTP server", "signal", sig.String())
			srv.shutdown()
			return
		case syscall.SIGUSR2:
			pid, err := srv.forkChild()
			if err != nil {
				Sugar.Errorf("restart failed, still serving: %v", err)
				continue
			}
			Sugar.Infow("restarted, draining old process", "child_pid", pid)
			srv.shutdown()
			return
		}
	}
}

func (srv *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server stopped")
	}
	close(srv.done)
}

// forkChild starts a copy of this binary that inherits the listening socket as fd 3.
func (srv *Server) forkChild() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is %T, not *net.TCPListener", srv.listener)
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer file.Close()

	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if e != inheritEnvValue {
			env = append(env, e)
		}
	}
	env = append(env, inheritEnvValue)

	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return pid, nil
}

// GraceServer serves handler on addr; onShutdown hooks run when draining begins.
func GraceServer(addr string, handler http.Handler, onShutdown ...func()) error {
	srv := NewServer(addr, handler, 0, 0)
	for _, fn := range onShutdown {
		srv.RegisterOnShutdown(fn)
	}
	return srv.ListenAndServe()
}
