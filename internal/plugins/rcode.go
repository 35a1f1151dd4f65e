package plugins

import "github.com/dohgate/dohgate/internal/dnswire"

var rcodeNames = map[string]dnswire.RCode{
	"NOERROR":  dnswire.RCodeNoError,
	"FORMERR":  dnswire.RCodeFormErr,
	"SERVFAIL": dnswire.RCodeServFail,
	"NXDOMAIN": dnswire.RCodeNXDomain,
	"NOTIMP":   dnswire.RCodeNotImp,
	"REFUSED":  dnswire.RCodeRefused,
}

// argRCode parses a response-code arg given as its mnemonic string,
// falling back to def when absent or unrecognized.
func argRCode(args map[string]any, key string, def dnswire.RCode) dnswire.RCode {
	s := argString(args, key, "")
	if s == "" {
		return def
	}
	if rc, ok := rcodeNames[s]; ok {
		return rc
	}
	return def
}
