package config

import (
	"github.com/coverlane/coverlane/internal/partnersrv/config"
)

// PartnerStoreDsn returns the DSN for the partner store database.
func PartnerStoreDsn() string {
	return config.PartnerStoreDSN()
}

const CompressRawPayloads = config.CompressRawPayloads
