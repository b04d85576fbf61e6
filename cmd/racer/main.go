// Command racer replays a scripted prediction-market cycle against an
// in-memory environment adapter, for manual inspection. It is a debugging
// aid, not a deployment harness: nothing here talks to a network or a
// chain client.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"racer/env"
	"racer/market"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("racer: .env: %v", err)
	}

	scenario := flag.String("scenario", "", "path to a create|vote|claim scenario file")
	metricsAddr := flag.String("metrics-addr", envOr("RACER_METRICS_ADDR", ""), "address to serve /metrics on, e.g. :9090 (empty disables)")
	dump := flag.Bool("dump", false, "print a JSON snapshot of every touched cycle after the run")
	flag.Parse()

	if *scenario == "" {
		fmt.Fprintln(os.Stderr, "usage: racer -scenario <file> [-metrics-addr :9090] [-dump]")
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("racer: logger: %v", err)
	}
	defer logger.Sync()

	adapter := env.NewMockAdapter()
	ctrl := market.NewController(adapter, logger)

	if *metricsAddr != "" {
		go serveMetrics(ctrl, *metricsAddr, logger)
	}

	f, err := os.Open(*scenario)
	if err != nil {
		log.Fatalf("racer: %v", err)
	}
	defer f.Close()

	run := newRunner(adapter, ctrl)
	if err := run.Play(f); err != nil {
		log.Fatalf("racer: %v", err)
	}

	if *dump {
		run.Dump(os.Stdout)
	}
}

func serveMetrics(ctrl *market.Controller, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(ctrl.Registry(), promhttp.HandlerOpts{}))
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// runner replays a scenario file line by line against a Controller, driving
// the adapter's caller/block/value fields from each line's fields before
// dispatching the operation it names. It tracks every cycle id it has
// touched so -dump can print a final snapshot.
type runner struct {
	adapter *env.MockAdapter
	ctrl    *market.Controller
	cycles  map[uint64]struct{}
}

func newRunner(adapter *env.MockAdapter, ctrl *market.Controller) *runner {
	return &runner{adapter: adapter, ctrl: ctrl, cycles: make(map[uint64]struct{})}
}

// Play executes every non-blank, non-comment line in src in order. A line is
// "verb key=value key=value ...". Recognized verbs: create, vote, claim.
func (r *runner) Play(src *os.File) error {
	scanner := bufio.NewScanner(src)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.playLine(line); err != nil {
			return fmt.Errorf("line %d: %q: %w", lineNo, line, err)
		}
	}
	return scanner.Err()
}

func (r *runner) playLine(line string) error {
	fields := strings.Fields(line)
	verb, fields := fields[0], fields[1:]
	kv := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("malformed field %q, want key=value", f)
		}
		kv[k] = v
	}

	caller, err := parseIdentity(kv["caller"])
	if err != nil {
		return err
	}
	r.adapter.SetCaller(caller)
	if b, ok := kv["block"]; ok {
		block, err := strconv.ParseUint(b, 10, 64)
		if err != nil {
			return fmt.Errorf("block: %w", err)
		}
		r.adapter.SetBlock(block)
	}

	switch verb {
	case "create":
		return r.create(kv)
	case "vote":
		return r.vote(kv)
	case "claim":
		return r.claim(kv, caller)
	default:
		return fmt.Errorf("unknown verb %q", verb)
	}
}

func (r *runner) create(kv map[string]string) error {
	start, err := strconv.ParseUint(kv["start"], 10, 64)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	length, err := strconv.ParseUint(kv["length"], 10, 64)
	if err != nil {
		return fmt.Errorf("length: %w", err)
	}
	price, err := parseU256(kv["price"])
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}

	cycleID, err := r.ctrl.CreateCycle(start, length, price)
	if err != nil {
		return err
	}
	r.cycles[cycleID] = struct{}{}
	fmt.Printf("create -> cycle %d\n", cycleID)
	return nil
}

func (r *runner) vote(kv map[string]string) error {
	cycleID, err := strconv.ParseUint(kv["cycle"], 10, 64)
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	symbol, err := parseSymbol(kv["symbol"])
	if err != nil {
		return err
	}
	value, err := parseU256(kv["value"])
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	r.adapter.SetValueIn(value)

	voteID, err := r.ctrl.PlaceVote(cycleID, symbol)
	if err != nil {
		return err
	}
	r.cycles[cycleID] = struct{}{}
	fmt.Printf("vote -> vote %d on %s in cycle %d\n", voteID, kv["symbol"], cycleID)
	return nil
}

func (r *runner) claim(kv map[string]string, caller env.Identity) error {
	cycleID, err := strconv.ParseUint(kv["cycle"], 10, 64)
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	voteID, err := strconv.ParseUint(kv["vote"], 10, 64)
	if err != nil {
		return fmt.Errorf("vote: %w", err)
	}

	amount, err := r.ctrl.ClaimReward(cycleID, voteID)
	if err != nil {
		return err
	}
	fmt.Printf("claim -> %s paid %s for vote %d in cycle %d\n", caller.String(), amount.String(), voteID, cycleID)
	return nil
}

// Dump prints a JSON snapshot of every cycle touched during the run.
func (r *runner) Dump(w *os.File) {
	views := make([]market.CycleView, 0, len(r.cycles))
	for id := range r.cycles {
		v, err := r.ctrl.GetCycle(id)
		if err != nil {
			continue
		}
		views = append(views, v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(views)
}

// parseIdentity decodes a hex-encoded (optionally 0x-prefixed) identity,
// right-aligning short values the way a big-endian address literal reads.
func parseIdentity(s string) (env.Identity, error) {
	var id env.Identity
	if s == "" {
		return id, nil
	}
	s = strings.TrimPrefix(s, "0x")
	if len(s) > len(id)*2 {
		return id, fmt.Errorf("caller %q too long for a 20-byte identity", s)
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	decoded := make([]byte, len(s)/2)
	for i := range decoded {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return id, fmt.Errorf("caller %q: %w", s, err)
		}
		decoded[i] = byte(v)
	}
	copy(id[len(id)-len(decoded):], decoded)
	return id, nil
}

func parseSymbol(s string) (market.Symbol, error) {
	var sym market.Symbol
	if len(s) > len(sym) {
		return sym, fmt.Errorf("symbol %q longer than 4 bytes", s)
	}
	copy(sym[:], s)
	return sym, nil
}

func parseU256(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}
