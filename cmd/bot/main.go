// Command bot plays one scripted season against a running server:
// init, a fertilizer pass, a few watering rounds, then ticks until
// the crop finishes.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"cropcraft.ai/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "server websocket url")
		date    = flag.String("date", "0501", "sowing date (MMDD)")
		crop    = flag.String("crop", "wheat", "crop name")
		maxDays = flag.Int("max_days", 160, "give up after this many simulated days")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var greeting protocol.Greeting
	if err := conn.ReadJSON(&greeting); err != nil {
		logger.Fatalf("greeting: %v", err)
	}
	logger.Printf("connected, session %s", greeting.SessionID)

	send := func(req map[string]any) protocol.Response {
		select {
		case <-stop:
			os.Exit(0)
		default:
		}
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatalf("send %v: %v", req["action"], err)
		}
		var resp protocol.Response
		if err := conn.ReadJSON(&resp); err != nil {
			logger.Fatalf("read response: %v", err)
		}
		if !resp.OK {
			logger.Fatalf("%v failed: %s (%s)", req["action"], resp.Error, resp.Code)
		}
		return resp
	}

	resp := send(map[string]any{
		"action":     "init",
		"date":       *date,
		"crop":       *crop,
		"fertilizer": "medium",
		"irrigation": "none",
	})
	b, _ := json.Marshal(resp.Result)
	logger.Printf("init: %s", b)

	days := 0
	waterEvery := 7
	for days < *maxDays {
		var result map[string]any
		if days > 0 && days%waterEvery == 0 {
			resp = send(map[string]any{"action": "water", "amount_cm": 2.0})
		} else {
			resp = send(map[string]any{"action": "tick"})
		}
		result, _ = resp.Result.(map[string]any)
		days++

		if metrics, ok := result["metrics"].(map[string]any); ok {
			logger.Printf("day %v: yield=%v soil_n=%v sm=%v",
				result["day"], metrics["yield_rate"], metrics["soil_n"], metrics["soil_moisture"])
		}
		if finished, _ := result["finished"].(bool); finished {
			logger.Printf("season finished after %d days", days)
			return
		}
	}
	logger.Printf("gave up after %d days", days)
}
