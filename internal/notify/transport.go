package notify

import "github.com/fmuoria/nexushire/internal/models"

// Transport identifies a delivery path.
type Transport int

const (
	// TransportMailAPI delivers through the pre-authorized mail API.
	TransportMailAPI Transport = iota
	// TransportSMTPImplicitTLS dials TLS directly (port 465).
	TransportSMTPImplicitTLS
	// TransportSMTPStartTLS upgrades a plain connection with STARTTLS.
	TransportSMTPStartTLS
)

func (t Transport) String() string {
	switch t {
	case TransportSMTPImplicitTLS:
		return "smtp-implicit-tls"
	case TransportSMTPStartTLS:
		return "smtp-starttls"
	default:
		return "mail-api"
	}
}

// SelectTransport picks SMTP only when it is requested and a non-empty
// config is supplied.
func SelectTransport(useOwnSMTP bool, cfg *models.SMTPConfig) Transport {
	if !useOwnSMTP || cfg == nil || *cfg == (models.SMTPConfig{}) {
		return TransportMailAPI
	}
	if cfg.EffectivePort() == 465 {
		return TransportSMTPImplicitTLS
	}
	return TransportSMTPStartTLS
}
