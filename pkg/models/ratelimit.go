package models

// RateLimitPolicy bounds how often a tool may be invoked. Tool "*" applies to
// every tool without a policy of its own.
type RateLimitPolicy struct {
	Tool  string  `json:"tool" yaml:"tool"`
	RPS   float64 `json:"rps" yaml:"rps"`
	Burst int     `json:"burst" yaml:"burst"`
}
