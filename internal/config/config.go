package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	StoreTimeout time.Duration
	WSSendBuffer int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "sweetshop.db"
	} // sqlite file in project root
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./sweetshop.log"
	}

	// Upper bound on any single store operation; a timed-out reservation is
	// treated as a failure and rolled back.
	storeTimeout := 3 * time.Second
	if ms, err := strconv.Atoi(os.Getenv("STORE_TIMEOUT_MS")); err == nil && ms > 0 {
		storeTimeout = time.Duration(ms) * time.Millisecond
	}

	// Per-subscriber outbound buffer; a subscriber that falls this far behind
	// is dropped from its channel.
	sendBuffer := 64
	if n, err := strconv.Atoi(os.Getenv("WS_SEND_BUFFER")); err == nil && n > 0 {
		sendBuffer = n
	}

	cfg := Config{Port: port, DBDSN: dsn, LogFile: logFile, StoreTimeout: storeTimeout, WSSendBuffer: sendBuffer}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s STORE_TIMEOUT=%s WS_SEND_BUFFER=%d",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.StoreTimeout, cfg.WSSendBuffer)
	return cfg
}
