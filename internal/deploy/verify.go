package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/wafv2"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
	"github.com/lex00/waf-rest-stack-go/internal/resolve"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
	"github.com/lex00/waf-rest-stack-go/intrinsics"
)

// Env returns the physical values of the deployed stack: pseudo-parameters,
// the Ref of every resource and the Arn of functions and web ACLs.
func (d *Deployer) Env(ctx context.Context) (resolve.Env, error) {
	st, err := d.describe(ctx)
	if err != nil {
		return resolve.Env{}, err
	}

	stackArn, err := arn.Parse(aws.ToString(st.StackId))
	if err != nil {
		return resolve.Env{}, fmt.Errorf("parsing stack id: %w", err)
	}
	env := resolve.NewEnv(d.opts.Region, stackArn.AccountID, d.opts.StackName)
	partition := env.Refs[intrinsics.PseudoPartition]

	out, err := d.clients.CloudFormation.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
		StackName: aws.String(d.opts.StackName),
	})
	if err != nil {
		return resolve.Env{}, fmt.Errorf("describing resources of %s: %w", d.opts.StackName, err)
	}

	for _, res := range out.StackResources {
		logicalID := aws.ToString(res.LogicalResourceId)
		physicalID := aws.ToString(res.PhysicalResourceId)
		if physicalID == "" {
			continue
		}
		env.SetRef(logicalID, physicalID)

		switch aws.ToString(res.ResourceType) {
		case "AWS::Lambda::Function":
			env.SetAttr(logicalID, "Arn", fmt.Sprintf("arn:%s:lambda:%s:%s:function:%s",
				partition, d.opts.Region, stackArn.AccountID, physicalID))
		case "AWS::WAFv2::WebACL":
			// The physical ID is name|id|scope.
			parts := strings.Split(physicalID, "|")
			if len(parts) == 3 {
				env.SetAttr(logicalID, "Arn", fmt.Sprintf("arn:%s:wafv2:%s:%s:%s/webacl/%s/%s",
					partition, d.opts.Region, stackArn.AccountID, strings.ToLower(parts[2]), parts[0], parts[1]))
			}
		}
	}

	return env, nil
}

// Verify checks the deployed stack against s: every associated stage exists
// and has the expected web ACL attached.
func (d *Deployer) Verify(ctx context.Context, s *stack.Stack) (*wafrest.VerifyResult, error) {
	env, err := d.Env(ctx)
	if err != nil {
		return nil, err
	}

	result := &wafrest.VerifyResult{StackName: d.opts.StackName}

	for _, api := range s.Apis() {
		url, err := resolve.Resolve(api.URL(), env)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("api %s: %v", api.LogicalID, err))
			continue
		}
		if result.URL == "" {
			result.URL = url
		}
	}

	for _, assoc := range s.Associations() {
		result.Errors = append(result.Errors, d.verifyAssociation(ctx, assoc, env, result)...)
	}

	result.Success = len(result.Errors) == 0
	logging.Info("verified stack", "stack", d.opts.StackName, "success", result.Success)
	return result, nil
}

func (d *Deployer) verifyAssociation(ctx context.Context, assoc *stack.AssociationSpec, env resolve.Env, result *wafrest.VerifyResult) []string {
	stageArn, err := resolve.Resolve(assoc.ResourceArn, env)
	if err != nil {
		return []string{fmt.Sprintf("association %s: %v", assoc.LogicalID, err)}
	}
	if result.StageArn == "" {
		result.StageArn = stageArn
	}

	var errs []string

	if _, err := d.clients.APIGateway.GetStage(ctx, &apigateway.GetStageInput{
		RestApiId: aws.String(env.Refs[assoc.Api.LogicalID]),
		StageName: aws.String(assoc.Stage.Name),
	}); err != nil {
		errs = append(errs, fmt.Sprintf("stage %s: %v", assoc.Stage.Name, err))
	}

	out, err := d.clients.WAFv2.GetWebACLForResource(ctx, &wafv2.GetWebACLForResourceInput{
		ResourceArn: aws.String(stageArn),
	})
	switch {
	case err != nil:
		errs = append(errs, fmt.Sprintf("web ACL for %s: %v", stageArn, err))
	case out.WebACL == nil:
		errs = append(errs, fmt.Sprintf("no web ACL is associated with %s", stageArn))
	default:
		if result.WebACLArn == "" {
			result.WebACLArn = aws.ToString(out.WebACL.ARN)
		}
		if name := aws.ToString(out.WebACL.Name); name != assoc.Policy.Name {
			errs = append(errs, fmt.Sprintf("stage %s is protected by %s, want %s", assoc.Stage.Name, name, assoc.Policy.Name))
		}
	}

	return errs
}
