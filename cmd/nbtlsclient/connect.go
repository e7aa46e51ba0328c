package main

//
// The connect subcommand
//

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/apex/log"
	"github.com/ooni/nbtls/config"
	"github.com/ooni/nbtls/internal/errorsx"
	"github.com/ooni/nbtls/internal/model"
	"github.com/ooni/nbtls/internal/nb"
	"github.com/ooni/nbtls/internal/nbdns"
	"github.com/ooni/nbtls/internal/nbtls"
	"github.com/ooni/nbtls/internal/netstack"
	"github.com/ooni/nbtls/internal/tlsbackend"
	"github.com/ooni/nbtls/internal/tlsconnector"
	"github.com/spf13/cobra"
)

// connectSubcommand returns the connect subcommand.
func connectSubcommand() *cobra.Command {
	cc := &connectCommand{
		logger: log.Log,
		stdout: os.Stdout,
	}
	cmd := &cobra.Command{
		Use:   "connect host:port",
		Short: "Establishes a TLS connection with host:port",
		Args:  cobra.ExactArgs(1),
		RunE:  cc.main,
	}
	flags := cmd.Flags()
	flags.StringVarP(&cc.configPath, "config", "c", "", "Path of the client configuration file")
	flags.StringVar(&cc.send, "send", "", "Data to send after the handshake")
	flags.DurationVar(&cc.timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}

// connectCommand contains the settings of the connect subcommand.
type connectCommand struct {
	configPath string
	logger     log.Interface
	send       string
	stdout     io.Writer
	timeout    time.Duration
}

func (cc *connectCommand) loadConfig() (*config.Client, error) {
	if cc.configPath == "" {
		return config.ParseClient([]byte("{}"))
	}
	return config.ReadClient(cc.configPath)
}

// main is the main function of the connect subcommand.
func (cc *connectCommand) main(cmd *cobra.Command, args []string) error {
	cfg, err := cc.loadConfig()
	if err != nil {
		return err
	}
	builder, err := cfg.Load()
	if err != nil {
		return err
	}
	bctx, err := cfg.Context(cc.logger)
	if err != nil {
		return err
	}
	connector, err := tlsconnector.Build(builder, bctx, tlsbackend.NewConnector)
	if err != nil {
		return err
	}
	resolver, err := cfg.NewResolver()
	if err != nil {
		return err
	}

	tcp := netstack.NewTLSStack(netstack.New(cc.logger))
	stack := nbtls.WithDNS(
		nbtls.WrapTLS[*netstack.Socket, *tlsbackend.Connector](cc.logger, tcp),
		nbdns.Wrap(cc.logger, resolver),
	)
	sock, err := tcp.Socket()
	if err != nil {
		return err
	}
	defer tcp.Close(sock)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cc.timeout)
	defer cancelTimeout()

	ts, err := nb.Block1(ctx, func() (model.TLSSocket[*netstack.Socket], error) {
		return nbtls.ConnectTarget(stack, sock, args[0], connector)
	})
	if err != nil {
		return err
	}
	cc.logState(args[0], ts.Socket())

	if cc.send == "" {
		return nil
	}
	return cc.roundTrip(ctx, tcp, ts.Socket())
}

func (cc *connectCommand) logState(target string, sock *netstack.Socket) {
	state, _ := sock.ConnectionState()
	fields := log.Fields{
		"type":         "tls_state",
		"target":       target,
		"remote":       sock.RemoteAddr().String(),
		"version":      tls.VersionName(state.Version),
		"cipher_suite": tls.CipherSuiteName(state.CipherSuite),
		"alpn":         state.NegotiatedProtocol,
	}
	if len(state.PeerCertificates) > 0 {
		fields["subject"] = state.PeerCertificates[0].Subject.String()
		fields["issuer"] = state.PeerCertificates[0].Issuer.String()
	}
	cc.logger.WithFields(fields).Info("connected")
}

// roundTrip sends the payload and writes the first chunk of the
// response to stdout.
func (cc *connectCommand) roundTrip(ctx context.Context, tcp *netstack.TLSStack, sock *netstack.Socket) error {
	data := []byte(cc.send)
	for len(data) > 0 {
		count, err := nb.Block1(ctx, func() (int, error) {
			return tcp.Send(sock, data)
		})
		if err != nil {
			return err
		}
		data = data[count:]
	}
	buffer := make([]byte, 1<<14)
	count, err := nb.Block1(ctx, func() (int, error) {
		return tcp.Receive(sock, buffer)
	})
	var ew *errorsx.ErrWrapper
	if errors.As(err, &ew) && ew.Failure == errorsx.FailureEOFError {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cc.stdout, "%s", buffer[:count])
	return err
}
