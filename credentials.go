package s3sig

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/s3types"
)

// DefaultHost is the S3 endpoint used when no host is given.
const DefaultHost = "s3.amazonaws.com"

// CredentialFromProvider retrieves keys from provider and pairs them with host.
// Session tokens are not part of Signature Version 2 and are ignored.
func CredentialFromProvider(ctx context.Context, provider aws.CredentialsProvider, host string) (s3types.Credential, error) {
	if provider == nil {
		return s3types.Credential{}, errors.NewError("credentials", errors.ErrInvalidCredentials).WithMessage("no credentials provider")
	}
	if host == "" {
		host = DefaultHost
	}

	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return s3types.Credential{}, errors.NewError("credentials", fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, err))
	}

	cred := s3types.Credential{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		Host:            host,
	}
	if err := cred.Validate(); err != nil {
		return s3types.Credential{}, err
	}
	return cred, nil
}

// LoadDefaultCredential resolves keys through the default AWS credential
// chain (environment, shared config and credentials files, instance roles).
func LoadDefaultCredential(
	ctx context.Context,
	host string,
	optFns ...func(*config.LoadOptions) error,
) (s3types.Credential, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return s3types.Credential{}, errors.NewError("credentials", fmt.Errorf("%w: %w", errors.ErrInvalidCredentials, err))
	}
	return CredentialFromProvider(ctx, cfg.Credentials, host)
}
