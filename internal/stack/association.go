package stack

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lex00/waf-rest-stack-go/intrinsics"
	"github.com/lex00/waf-rest-stack-go/resources/wafv2"
)

// StageArn is a typed reference to the ARN of an API stage. It serializes to
// a Fn::Join over Ref of the API and Ref of the stage, so the template
// builder sees both as dependencies.
type StageArn struct {
	Api   *ApiSpec
	Stage *StageSpec
}

// Join returns the intrinsic form of the ARN.
func (a StageArn) Join() intrinsics.Join {
	return intrinsics.Concat(
		"arn:", intrinsics.AWS_PARTITION, ":apigateway:", a.Api.stack.region,
		"::/restapis/", a.Api.Ref(), "/stages/", a.Stage.Ref(),
	)
}

// MarshalJSON implements json.Marshaler.
func (a StageArn) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Join())
}

// AssociationSpec binds a firewall policy to an API stage.
type AssociationSpec struct {
	ID          string
	LogicalID   string
	Api         *ApiSpec
	Stage       *StageSpec
	Policy      *FirewallPolicySpec
	ResourceArn StageArn
}

// Associate attaches policy to the given stage of api.
func (s *Stack) Associate(id string, api *ApiSpec, stage *StageSpec, policy *FirewallPolicySpec) (*AssociationSpec, error) {
	if id == "" {
		return nil, errors.New("association id is required")
	}
	if api == nil || stage == nil || policy == nil {
		return nil, fmt.Errorf("association %s: api, stage and policy are required", id)
	}
	if api.stack != s || policy.stack != s {
		return nil, fmt.Errorf("association %s: %w", id, ErrForeignSpec)
	}
	if stage.Api != api {
		return nil, fmt.Errorf("association %s: stage %s does not belong to api %s", id, stage.Name, api.ID)
	}

	logicalID, err := s.allocate(id)
	if err != nil {
		return nil, fmt.Errorf("association %s: %w", id, err)
	}

	assoc := &AssociationSpec{
		ID:          id,
		LogicalID:   logicalID,
		Api:         api,
		Stage:       stage,
		Policy:      policy,
		ResourceArn: StageArn{Api: api, Stage: stage},
	}

	s.add(logicalID, id, wafv2.WebACLAssociation{
		ResourceArn: assoc.ResourceArn,
		WebACLArn:   policy.Arn(),
	})

	s.associations = append(s.associations, assoc)
	return assoc, nil
}
