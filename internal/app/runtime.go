package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv makes entrypoints return before they touch the keyring, Redis
// or the billing API. Any value strconv.ParseBool accepts as true enables it.
const TestModeEnv = "BILLINGDESK_TEST_MODE"

const (
	modeUnknown int32 = iota
	modeOff
	modeOn
)

var testMode atomic.Int32

// InTestMode reports whether startup side effects should be skipped. The
// environment is read on first use and cached.
func InTestMode() bool {
	switch testMode.Load() {
	case modeOn:
		return true
	case modeOff:
		return false
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads TestModeEnv and returns the new setting.
func RefreshTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	if on {
		testMode.Store(modeOn)
	} else {
		testMode.Store(modeOff)
	}
	return on
}
