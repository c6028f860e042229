package audit

import "strings"

// recommendation maps a message keyword to a remediation sentence.
type recommendation struct {
	keyword string
	text    string
}

var recommendations = []recommendation{
	{"md5", "Replace MD5 with SHA-2 or SHA-3 and use secure HMAC."},
	{"sha-1", "Upgrade to SHA-2 or SHA-3 to prevent collision attacks."},
	{"rsa", "Replace with hybrid RSA+Kyber or use RSA with at least 3072-bit keys."},
	{"ecdsa", "Migrate to PQC alternatives such as Dilithium or Falcon for signatures."},
	{"3des", "Replace 3DES with AES-256 or a modern symmetric cipher."},
	{"diffie", "Switch to a Kyber-based key exchange."},
	{"hmac", "Replace HMAC with MD5 with one using SHA-2 or SHA-3."},
	{"hardcoded", "Remove hardcoded keys and implement secure key management."},
}

// GenericRecommendation is used when no keyword matches.
const GenericRecommendation = "Review the finding and develop a full PQC migration roadmap."

// Recommend returns the remediation sentences for a finding, derived from
// its message only.
func Recommend(f Finding) []string {
	msg := strings.ToLower(f.Message)
	var recs []string
	for _, r := range recommendations {
		if strings.Contains(msg, r.keyword) {
			recs = append(recs, r.text)
		}
	}
	if len(recs) == 0 {
		return []string{GenericRecommendation}
	}
	return recs
}

// RecommendationText joins Recommend's sentences for single-cell display.
func RecommendationText(f Finding) string {
	return strings.Join(Recommend(f), " | ")
}
