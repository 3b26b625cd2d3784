package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the Secrets Manager call the provider needs.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSProvider reads secrets from AWS Secrets Manager. The secret id of
// scope/key is "scope/key".
type AWSProvider struct {
	client SecretsManagerAPI
}

// NewAWS creates a provider using the default AWS credential chain.
// endpoint overrides the service endpoint, for example a local emulator.
func NewAWS(ctx context.Context, region, endpoint string) (*AWSProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSWithClient(client), nil
}

// NewAWSWithClient creates a provider over client.
func NewAWSWithClient(client SecretsManagerAPI) *AWSProvider {
	return &AWSProvider{client: client}
}

// SecretID returns the Secrets Manager id of scope/key.
func SecretID(scope, key string) string {
	if scope == "" {
		return key
	}
	return scope + "/" + key
}

// Get fetches the current secret value.
func (p *AWSProvider) Get(ctx context.Context, scope, key string) (string, error) {
	id := SecretID(scope, key)
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", id, err)
	}
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}
