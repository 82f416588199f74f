// Package clients talks to the external model services the pipeline
// depends on: shot detection, speech recognition and voice embedding.
package clients

import (
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

// NewHTTP builds a client with a timeout generous enough for model
// inference on long videos.
func NewHTTP() *HTTP { return &HTTP{c: &http.Client{Timeout: 10 * time.Minute}} }
