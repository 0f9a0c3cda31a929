// Package guard puts the process in test mode when imported, so a main
// exercised from tests returns before touching the keyring, Redis or the
// billing API. An explicit BILLINGDESK_TEST_MODE is left alone.
package guard

import (
	"os"

	"github.com/odyssey-erp/billingdesk/internal/app"
)

func init() {
	if _, set := os.LookupEnv(app.TestModeEnv); !set {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
	app.RefreshTestMode()
}
