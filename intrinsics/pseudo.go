package intrinsics

import (
	"strings"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// Pseudo-parameter refs used when building ARNs and URLs.
var (
	AWS_ACCOUNT_ID = intrinsics.AWS_ACCOUNT_ID
	AWS_PARTITION  = intrinsics.AWS_PARTITION
	AWS_REGION     = intrinsics.AWS_REGION
	AWS_STACK_NAME = intrinsics.AWS_STACK_NAME
	// AWS_URL_SUFFIX is amazonaws.com outside the China partitions.
	AWS_URL_SUFFIX = intrinsics.AWS_URL_SUFFIX
)

// Pseudo-parameter logical names. Refs to these never resolve to a resource
// in the template.
const (
	PseudoRegion    = "AWS::Region"
	PseudoAccountID = "AWS::AccountId"
	PseudoPartition = "AWS::Partition"
	PseudoURLSuffix = "AWS::URLSuffix"
	PseudoStackName = "AWS::StackName"
)

// IsPseudo reports whether a Ref target is a pseudo-parameter.
func IsPseudo(name string) bool {
	return len(name) > len("AWS::") && strings.HasPrefix(name, "AWS::")
}
