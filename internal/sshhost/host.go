// Package sshhost hosts the SFTP subsystem over an SSH transport: it
// terminates the SSH handshake, authenticates against the object store's
// per-user authorized_keys objects, filters every SSH channel down to the
// "sftp" subsystem request, and hands the resulting channel to
// internal/session.
//
// Grounded on the teacher's server_standalone/main.go, which does the
// same four things (listen, handshake, channel-type filter, subsystem
// filter) against an embedded test key and a single in-memory handler;
// this package generalizes that into a host-key-file-driven,
// public-key-authenticated, multi-session server.
package sshhost

import (
	"bytes"
	"context"
	"net"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/tnewman/dray/internal/logging"
	"github.com/tnewman/dray/internal/objectstore"
	"github.com/tnewman/dray/internal/session"
)

// Store is the subset of *objectstore.Adapter the host itself needs,
// ahead of handing a channel off to a session.Session (which takes the
// rest of the adapter's surface through session.Store).
type Store interface {
	session.Store
	GetAuthorizedKeys(ctx context.Context, user string) ([]ssh.PublicKey, error)
}

var _ Store = (*objectstore.Adapter)(nil)

// Host accepts raw TCP connections, speaks the SSH transport and
// authentication layers, and serves one internal/session.Session per
// accepted "session" channel carrying an "sftp" subsystem request.
type Host struct {
	config *ssh.ServerConfig
	store  Store
	log    *logrus.Logger
}

// errUnauthorized is returned by the PublicKeyCallback for any key not
// present in the connecting user's authorized_keys object — including
// when the user has no such object at all.
var errUnauthorized = errors.New("public key not authorized")

// New builds a Host: it loads every host key in hostKeyPaths and wires a
// PublicKeyCallback that authenticates against store.GetAuthorizedKeys.
// At least one host key path is required; a malformed or unreadable key
// file aborts startup rather than silently serving with fewer host keys.
func New(ctx context.Context, store Store, hostKeyPaths []string, log *logrus.Logger) (*Host, error) {
	if len(hostKeyPaths) == 0 {
		return nil, errors.New("sshhost: at least one host key path is required")
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			authorized, err := store.GetAuthorizedKeys(ctx, conn.User())
			if err != nil {
				return nil, errors.Wrap(err, "load authorized keys")
			}

			marshaled := key.Marshal()
			for _, k := range authorized {
				if bytes.Equal(k.Marshal(), marshaled) {
					return &ssh.Permissions{
						Extensions: map[string]string{"user": conn.User()},
					}, nil
				}
			}
			return nil, errUnauthorized
		},
	}

	for _, path := range hostKeyPaths {
		keyBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read host key %s", path)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, errors.Wrapf(err, "parse host key %s", path)
		}
		config.AddHostKey(signer)
	}

	return &Host{config: config, store: store, log: log}, nil
}

// Serve accepts connections from ln until ctx is canceled or Accept
// fails. Each accepted connection is handled on its own goroutine and
// outlives the Accept loop; Serve itself returns once the listener stops
// producing new connections.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errors.Wrap(err, "accept")
			}
		}
		go h.handleConn(ctx, conn)
	}
}

func (h *Host) handleConn(ctx context.Context, conn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, h.config)
	if err != nil {
		h.log.WithError(err).Debug("ssh handshake failed")
		return
	}
	defer sshConn.Close()

	h.log.WithFields(logrus.Fields{
		"remote_addr": conn.RemoteAddr().String(),
		"user":        sshConn.User(),
	}).Info("ssh handshake succeeded")

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			h.log.WithError(err).Debug("failed to accept channel")
			continue
		}
		go h.serveChannel(ctx, sshConn.User(), channel, requests)
	}
}

// serveChannel waits for the channel's "sftp" subsystem request (every
// other request is rejected, per spec.md §6.1) and then drives an
// internal/session.Session over the channel until it ends.
func (h *Host) serveChannel(ctx context.Context, user string, channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	ready := make(chan bool, 1)
	go filterSubsystem(requests, ready)

	select {
	case ok := <-ready:
		if !ok {
			return
		}
	case <-ctx.Done():
		return
	}

	entry := logging.NewSessionEntry(h.log, user)
	sess := session.New(channel, h.store, user, entry)
	if err := sess.Serve(ctx); err != nil {
		entry.WithError(err).Debug("session ended")
	}
}

// filterSubsystem replies true to exactly the "sftp" subsystem request
// and false to everything else, then signals ready once that request has
// been seen. Grounded on the teacher's filterNonSFTP
// (server_standalone/main.go), which does the identical reply-then-match
// but without a completion signal, since that version hands the channel
// to sftp.Serve unconditionally rather than waiting for the subsystem
// request first.
func filterSubsystem(in <-chan *ssh.Request, ready chan<- bool) {
	matched := false
	for req := range in {
		switch {
		case req.Type == "subsystem" && len(req.Payload) >= 4 && string(req.Payload[4:]) == "sftp":
			req.Reply(true, nil)
			if !matched {
				matched = true
				ready <- true
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
	if !matched {
		ready <- false
	}
}
