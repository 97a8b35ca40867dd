// Command echoserver is a demo binary wiring NetServer end to end: it
// binds a TCP listener (and, with --unix, a Unix domain socket
// alongside it), gates admission with a token-bucket rate limiter when
// --rate-capacity is above zero, and echoes every byte it reads back to
// the sender until the connection closes or the grace period after
// shutdown runs out.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/silentframework/netserver/pkg/log"
	"github.com/silentframework/netserver/pkg/netserver"
	"github.com/silentframework/netserver/pkg/peeraddr"
	"github.com/silentframework/netserver/pkg/service"
	"github.com/silentframework/netserver/pkg/tlsutil"
)

const (
	hostFlag         = "host"
	portFlag         = "port"
	unixFlag         = "unix"
	tlsFlag          = "tls"
	rateCapacityFlag = "rate-capacity"
	rateRefillFlag   = "rate-refill"
	rateMaxWaitFlag  = "rate-max-wait"
	gracefulFlag     = "graceful-wait"
	verboseFlag      = "verbose"
)

func main() {
	app := &cli.Command{
		Name:  "echoserver",
		Usage: "Run a NetServer instance that echoes every connection",
		Action: func(ctx context.Context, cCtx *cli.Command) error {
			return run(cCtx)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: hostFlag, Value: "127.0.0.1", Usage: "Local interface, empty for all interfaces"},
			&cli.IntFlag{Name: portFlag, Value: 0, Usage: "Local port, 0 lets the OS pick"},
			&cli.StringFlag{Name: unixFlag, Value: "", Usage: "Additionally bind this Unix domain socket path"},
			&cli.BoolFlag{Name: tlsFlag, Value: false, Usage: "Wrap the TCP listener in an ephemeral self-signed TLS certificate"},
			&cli.IntFlag{Name: rateCapacityFlag, Value: 0, Usage: "Token bucket capacity; 0 disables rate limiting"},
			&cli.DurationFlag{Name: rateRefillFlag, Value: 10 * time.Millisecond, Usage: "Token refill interval"},
			&cli.DurationFlag{Name: rateMaxWaitFlag, Value: 1 * time.Second, Usage: "Max wait for a token before dropping a connection"},
			&cli.DurationFlag{Name: gracefulFlag, Value: 5 * time.Second, Usage: "Grace period for in-flight connections on shutdown"},
			&cli.BoolFlag{Name: verboseFlag, Value: false, Usage: "Enable verbose logging"},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.ErrorMsg("%s", err)
		os.Exit(1)
	}
}

func run(cCtx *cli.Command) error {
	logger := log.New(os.Stderr, cCtx.Bool(verboseFlag))

	addr := fmt.Sprintf("%s:%d", cCtx.String(hostFlag), cCtx.Int(portFlag))

	ns := netserver.New().
		WithLogger(logger).
		WithShutdown(cCtx.Duration(gracefulFlag)).
		OnListen(func(addrs []peeraddr.Addr) {
			for _, a := range addrs {
				logger.InfoMsg("listening on %s", nil, a)
			}
		})

	if cCtx.Bool(tlsFlag) {
		config, err := tlsConfig()
		if err != nil {
			return fmt.Errorf("building ephemeral TLS config: %s", err)
		}
		ns.BindTLS(addr, config)
	} else {
		ns.Bind(addr)
	}

	maybeBindUnix(ns, cCtx.String(unixFlag))

	if capacity := cCtx.Int(rateCapacityFlag); capacity > 0 {
		ns.WithRateLimiter(int(capacity), cCtx.Duration(rateRefillFlag), cCtx.Duration(rateMaxWaitFlag))
	}

	return ns.Run(service.HandlerFunc(echo))
}

func tlsConfig() (*tls.Config, error) {
	return tlsutil.EphemeralConfig("")
}

func echo(ctx context.Context, conn net.Conn, peer peeraddr.Addr) error {
	log.InfoMsg("connection from %s", peer)
	defer log.InfoMsg("connection from %s closed", peer)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	_, err := io.Copy(conn, conn)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
