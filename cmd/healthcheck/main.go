package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/server"
)

func main() {
	var (
		grpcAddr = pflag.String("grpc", "localhost:8080", "gRPC address of taxfilerd (empty to skip)")
		httpURL  = pflag.String("http", "http://localhost:8081", "base URL of the HTTP surface (empty to skip)")
		timeout  = pflag.Duration("timeout", 2*time.Second, "per-check timeout")
		tools    = pflag.Bool("tools", false, "also list the registered tools over gRPC")
	)
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := false
	if *grpcAddr != "" {
		if err := checkGRPC(ctx, *grpcAddr, *timeout, *tools); err != nil {
			log.Printf("gRPC health: FAIL (%v)", err)
			failed = true
		} else {
			log.Println("gRPC health: OK")
		}
	}
	if *httpURL != "" {
		if err := checkHTTP(ctx, *httpURL, *timeout); err != nil {
			log.Printf("HTTP health: FAIL (%v)", err)
			failed = true
		} else {
			log.Println("HTTP health: OK")
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkGRPC(ctx context.Context, addr string, timeout time.Duration, listTools bool) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer func(conn *grpc.ClientConn) {
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: closing grpc conn: %v", err)
		}
	}(conn)

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(cctx, &healthpb.HealthCheckRequest{Service: server.ToolServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("status %s", resp.GetStatus())
	}

	if listTools {
		names, err := server.NewToolClient(conn).ListTools(cctx)
		if err != nil {
			return err
		}
		log.Printf("tools count: %d", len(names))
		for _, n := range names {
			log.Printf("- %s", n)
		}
	}
	return nil
}

func checkHTTP(ctx context.Context, base string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, strings.TrimRight(base, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
