package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"godsendjoseph.dev/gaushala-api/internal/errs"
)

const policyVersion = "2012-10-17"

// bucketPolicy keeps statements it does not own as raw JSON so foreign
// statements survive a re-assert untouched.
type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []json.RawMessage `json:"Statement"`
}

type policyStatement struct {
	Sid       string              `json:"Sid"`
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

// statementFor renders an AccessPolicy as an S3 bucket-policy statement.
// Authenticated policies need an explicit principal ARN; without one the
// predicate cannot be expressed and a KindUnsupported error is returned.
func statementFor(policy AccessPolicy, authenticatedPrincipal string) (policyStatement, error) {
	var principal string
	switch policy.Predicate {
	case PredicatePublic:
		principal = "*"
	case PredicateAuthenticated:
		if authenticatedPrincipal == "" {
			return policyStatement{}, errs.New(errs.KindUnsupported, fmt.Sprintf("policy %q needs STORAGE_AUTHENTICATED_PRINCIPAL", policy.Name))
		}
		principal = authenticatedPrincipal
	default:
		return policyStatement{}, errs.New(errs.KindInvalidInput, fmt.Sprintf("policy %q has unknown predicate %q", policy.Name, policy.Predicate))
	}

	var actions []string
	switch policy.Operation {
	case OperationRead:
		actions = []string{"s3:GetObject"}
	case OperationWrite:
		actions = []string{"s3:PutObject"}
	case OperationUpdate:
		actions = []string{"s3:PutObject", "s3:PutObjectTagging"}
	case OperationDelete:
		actions = []string{"s3:DeleteObject"}
	default:
		return policyStatement{}, errs.New(errs.KindInvalidInput, fmt.Sprintf("policy %q has unknown operation %q", policy.Name, policy.Operation))
	}

	return policyStatement{
		Sid:       policySid(policy.Name),
		Effect:    "Allow",
		Principal: map[string][]string{"AWS": {principal}},
		Action:    actions,
		Resource:  []string{fmt.Sprintf("arn:aws:s3:::%s/*", policy.Container)},
	}, nil
}

// reassertStatement removes any statement sharing st's Sid from the current
// policy document and appends st. An empty document starts a new policy.
func reassertStatement(current string, st policyStatement) (string, error) {
	doc := bucketPolicy{Version: policyVersion}
	if strings.TrimSpace(current) != "" {
		if err := json.Unmarshal([]byte(current), &doc); err != nil {
			return "", errs.Wrap(errs.KindInvalidInput, "existing bucket policy is not valid JSON", err)
		}
		if doc.Version == "" {
			doc.Version = policyVersion
		}
	}

	kept := make([]json.RawMessage, 0, len(doc.Statement)+1)
	for _, raw := range doc.Statement {
		var probe struct {
			Sid string `json:"Sid"`
		}
		if err := json.Unmarshal(raw, &probe); err == nil && probe.Sid == st.Sid {
			continue
		}
		kept = append(kept, raw)
	}

	encoded, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	doc.Statement = append(kept, encoded)

	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// policySid turns "Allow public read access" into "AllowPublicReadAccess".
func policySid(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
