// Package deploy hands a synthesized template to CloudFormation and reads
// back what was provisioned.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	wafrest "github.com/lex00/waf-rest-stack-go"
	"github.com/lex00/waf-rest-stack-go/internal/differ"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
	"github.com/lex00/waf-rest-stack-go/internal/template"
)

// MaxTemplateBody is the largest template CloudFormation accepts inline.
const MaxTemplateBody = 51200

// DefaultTimeout bounds the stack waiters when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Minute

// ErrStackNotFound is returned when the stack does not exist.
var ErrStackNotFound = errors.New("stack does not exist")

// Action is what Deploy did to the stack.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionNone   Action = "none"
)

// Options configures a Deployer.
type Options struct {
	StackName string
	Region    string
	// TemplateBucket, when set, receives the template before deployment.
	TemplateBucket string
	TemplatePrefix string
	Timeout        time.Duration
	Tags           map[string]string
}

// Result describes a finished deployment.
type Result struct {
	StackID string
	Action  Action
	Outputs map[string]string
}

// Deployer drives one CloudFormation stack.
type Deployer struct {
	clients Clients
	opts    Options
}

// New returns a Deployer for opts.StackName.
func New(clients Clients, opts Options) *Deployer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Deployer{clients: clients, opts: opts}
}

// Deploy creates the stack, or updates it when it already exists, and waits
// for CloudFormation to finish. An update with no changes is not an error.
func (d *Deployer) Deploy(ctx context.Context, t *wafrest.Template) (*Result, error) {
	body, err := template.ToJSON(t)
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}

	var templateURL string
	if d.opts.TemplateBucket != "" {
		templateURL, err = d.upload(ctx, body)
		if err != nil {
			return nil, err
		}
	} else if len(body) > MaxTemplateBody {
		return nil, fmt.Errorf("template is %d bytes, over the %d byte inline limit; set a template bucket", len(body), MaxTemplateBody)
	}

	existing, err := d.describe(ctx)
	switch {
	case errors.Is(err, ErrStackNotFound):
		return d.create(ctx, body, templateURL)
	case err != nil:
		return nil, err
	}

	if isRollbackComplete(existing.StackStatus) {
		return nil, fmt.Errorf("stack %s is in %s; destroy it before deploying again", d.opts.StackName, existing.StackStatus)
	}
	return d.update(ctx, body, templateURL)
}

func (d *Deployer) create(ctx context.Context, body []byte, templateURL string) (*Result, error) {
	input := &cloudformation.CreateStackInput{
		StackName:    aws.String(d.opts.StackName),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityIam},
		Tags:         d.tags(),
	}
	if templateURL != "" {
		input.TemplateURL = aws.String(templateURL)
	} else {
		input.TemplateBody = aws.String(string(body))
	}

	logging.Info("creating stack", "stack", d.opts.StackName)
	out, err := d.clients.CloudFormation.CreateStack(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("creating stack %s: %w", d.opts.StackName, err)
	}

	waiter := cloudformation.NewStackCreateCompleteWaiter(d.clients.CloudFormation)
	if err := waiter.Wait(ctx, d.describeInput(), d.opts.Timeout); err != nil {
		return nil, fmt.Errorf("waiting for stack %s: %w", d.opts.StackName, err)
	}

	return d.result(ctx, aws.ToString(out.StackId), ActionCreate)
}

func (d *Deployer) update(ctx context.Context, body []byte, templateURL string) (*Result, error) {
	input := &cloudformation.UpdateStackInput{
		StackName:    aws.String(d.opts.StackName),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityIam},
		Tags:         d.tags(),
	}
	if templateURL != "" {
		input.TemplateURL = aws.String(templateURL)
	} else {
		input.TemplateBody = aws.String(string(body))
	}

	logging.Info("updating stack", "stack", d.opts.StackName)
	out, err := d.clients.CloudFormation.UpdateStack(ctx, input)
	if err != nil {
		if isNoUpdates(err) {
			logging.Info("stack is up to date", "stack", d.opts.StackName)
			return d.result(ctx, "", ActionNone)
		}
		return nil, fmt.Errorf("updating stack %s: %w", d.opts.StackName, err)
	}

	waiter := cloudformation.NewStackUpdateCompleteWaiter(d.clients.CloudFormation)
	if err := waiter.Wait(ctx, d.describeInput(), d.opts.Timeout); err != nil {
		return nil, fmt.Errorf("waiting for stack %s: %w", d.opts.StackName, err)
	}

	return d.result(ctx, aws.ToString(out.StackId), ActionUpdate)
}

func (d *Deployer) result(ctx context.Context, stackID string, action Action) (*Result, error) {
	st, err := d.describe(ctx)
	if err != nil {
		return nil, err
	}
	if stackID == "" {
		stackID = aws.ToString(st.StackId)
	}
	return &Result{
		StackID: stackID,
		Action:  action,
		Outputs: outputsOf(st),
	}, nil
}

// Outputs returns the outputs of the deployed stack.
func (d *Deployer) Outputs(ctx context.Context) (map[string]string, error) {
	st, err := d.describe(ctx)
	if err != nil {
		return nil, err
	}
	return outputsOf(st), nil
}

// Destroy deletes the stack and waits until it is gone.
func (d *Deployer) Destroy(ctx context.Context) error {
	if _, err := d.describe(ctx); err != nil {
		return err
	}

	logging.Info("deleting stack", "stack", d.opts.StackName)
	if _, err := d.clients.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(d.opts.StackName),
	}); err != nil {
		return fmt.Errorf("deleting stack %s: %w", d.opts.StackName, err)
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(d.clients.CloudFormation)
	if err := waiter.Wait(ctx, d.describeInput(), d.opts.Timeout); err != nil {
		return fmt.Errorf("waiting for stack %s deletion: %w", d.opts.StackName, err)
	}
	return nil
}

// DeployedTemplate returns the template CloudFormation holds for the stack.
func (d *Deployer) DeployedTemplate(ctx context.Context) (*wafrest.Template, error) {
	out, err := d.clients.CloudFormation.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(d.opts.StackName),
		TemplateStage: cfntypes.TemplateStageOriginal,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", d.opts.StackName, ErrStackNotFound)
		}
		return nil, fmt.Errorf("getting template of %s: %w", d.opts.StackName, err)
	}
	return differ.ParseTemplate([]byte(aws.ToString(out.TemplateBody)))
}

func (d *Deployer) upload(ctx context.Context, body []byte) (string, error) {
	key := d.opts.TemplatePrefix + d.opts.StackName + ".template.json"

	logging.Debug("uploading template", "bucket", d.opts.TemplateBucket, "key", key, "bytes", len(body))
	if _, err := d.clients.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.opts.TemplateBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("uploading template to s3://%s/%s: %w", d.opts.TemplateBucket, key, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.opts.TemplateBucket, d.opts.Region, key), nil
}

func (d *Deployer) describeInput() *cloudformation.DescribeStacksInput {
	return &cloudformation.DescribeStacksInput{StackName: aws.String(d.opts.StackName)}
}

func (d *Deployer) describe(ctx context.Context) (*cfntypes.Stack, error) {
	out, err := d.clients.CloudFormation.DescribeStacks(ctx, d.describeInput())
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", d.opts.StackName, ErrStackNotFound)
		}
		return nil, fmt.Errorf("describing stack %s: %w", d.opts.StackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("%s: %w", d.opts.StackName, ErrStackNotFound)
	}
	return &out.Stacks[0], nil
}

func (d *Deployer) tags() []cfntypes.Tag {
	keys := make([]string, 0, len(d.opts.Tags))
	for k := range d.opts.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]cfntypes.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, cfntypes.Tag{Key: aws.String(k), Value: aws.String(d.opts.Tags[k])})
	}
	return tags
}

func outputsOf(st *cfntypes.Stack) map[string]string {
	outputs := make(map[string]string, len(st.Outputs))
	for _, o := range st.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs
}

func isRollbackComplete(status cfntypes.StackStatus) bool {
	return status == cfntypes.StackStatusRollbackComplete
}

// CloudFormation reports both conditions as ValidationError.
func isNotFound(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ValidationError" &&
		strings.Contains(ae.ErrorMessage(), "does not exist")
}

func isNoUpdates(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ValidationError" &&
		strings.Contains(ae.ErrorMessage(), "No updates are to be performed")
}
