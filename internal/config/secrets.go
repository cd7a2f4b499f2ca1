package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/telemart-systems/telemart/pkg/types"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, input *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ResolveSecrets replaces secretsmanager: password references in the config
// with the fetched secret values. A nil api builds a real client from the
// ambient AWS config.
func ResolveSecrets(ctx context.Context, cfg *types.ProjectConfig, api SecretsAPI) error {
	if cfg.Postgres == nil || !IsSecretRef(cfg.Postgres.Password) {
		return nil
	}

	if api == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		api = secretsmanager.NewFromConfig(awsCfg)
	}

	arn := SecretARN(cfg.Postgres.Password)
	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return fmt.Errorf("fetching secret %s: %w", arn, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", arn)
	}
	cfg.Postgres.Password = *out.SecretString
	return nil
}
