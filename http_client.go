package main

import (
	"net/http"
	"time"
)

// Generation calls can legitimately take minutes on large batches.
const llmHTTPTimeout = 2 * time.Minute

var llmHTTPClient = &http.Client{
	Timeout: llmHTTPTimeout,
}
