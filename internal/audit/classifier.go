package audit

import "strings"

// riskRule pairs a predicate over a normalized message with the risk it assigns.
type riskRule struct {
	name  string
	match func(msg string) bool
	risk  Risk
}

const rsaPrefix = "insecure rsa key usage detected"

// riskRules is evaluated in order; the first match wins.
var riskRules = []riskRule{
	{
		name: "rsa-mitigated",
		match: func(msg string) bool {
			return strings.HasPrefix(msg, rsaPrefix) &&
				(strings.Contains(msg, ">=3072") || strings.Contains(msg, "kyber"))
		},
		risk: RiskLow,
	},
	{name: "rsa", match: hasPrefix(rsaPrefix), risk: RiskHigh},
	{name: "md5", match: hasPrefix("insecure use of md5 detected"), risk: RiskHigh},
	{name: "sha-1", match: hasPrefix("insecure use of sha-1 detected"), risk: RiskHigh},
	{name: "ecdsa", match: hasPrefix("insecure use of ecdsa detected"), risk: RiskHigh},
	{
		name: "3des",
		match: func(msg string) bool {
			return strings.HasPrefix(msg, "insecure use of triple des detected") ||
				(strings.Contains(msg, "3des") && strings.Contains(msg, "insecure"))
		},
		risk: RiskMedium,
	},
	{
		name: "diffie-hellman",
		match: func(msg string) bool {
			return strings.HasPrefix(msg, "insecure use of diffie") ||
				(strings.Contains(msg, "diffie") && strings.Contains(msg, "insecure"))
		},
		risk: RiskLow,
	},
	{name: "hmac-md5", match: hasPrefix("insecure hmac with md5 detected"), risk: RiskHigh},
}

func hasPrefix(prefix string) func(string) bool {
	return func(msg string) bool { return strings.HasPrefix(msg, prefix) }
}

// Classify returns the risk for an analyzer message. It never returns
// RiskUnknown; messages that match no rule are Low.
func Classify(message string) Risk {
	_, risk := ClassifyRule(message)
	return risk
}

// ClassifyRule is Classify that also names the rule that fired, or
// "default" when none did.
func ClassifyRule(message string) (string, Risk) {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, r := range riskRules {
		if r.match(msg) {
			return r.name, r.risk
		}
	}
	return "default", RiskLow
}

const (
	configMessagePrefix = "Found reference to "
	configMessageSuffix = " in config."
)

// ConfigMessage is the finding message for an algorithm referenced in
// config text.
func ConfigMessage(algorithm string) string {
	return configMessagePrefix + algorithm + configMessageSuffix
}

// RuleName names the rule behind a finding. Config findings are named after
// the referenced algorithm and TLS findings after their outcome; code and
// imported findings use the message classifier.
func RuleName(f Finding) string {
	switch f.Source {
	case "config":
		if alg, ok := strings.CutPrefix(f.Message, configMessagePrefix); ok {
			if alg, ok = strings.CutSuffix(alg, configMessageSuffix); ok {
				return strings.ToLower(alg)
			}
		}
		return "error"
	case "tls":
		switch f.Risk {
		case RiskHigh:
			return "rsa-weak"
		case RiskUnknown:
			return "error"
		default:
			return "ok"
		}
	}
	name, _ := ClassifyRule(f.Message)
	return name
}
