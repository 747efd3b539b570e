package domain

// VerificationToken is a pending email sign-in.
// PK: identifier (email), SK: token_hash. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
// Only the hash is stored; the raw token lives in the emailed URL.
type VerificationToken struct {
	Identifier string `json:"identifier" dynamodbav:"identifier"`
	TokenHash  string `json:"-" dynamodbav:"token_hash"`
	ExpiresAt  int64  `json:"expires_at" dynamodbav:"expires_at"`
}
