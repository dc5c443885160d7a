package destsync

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
)

// AWSIAMConfig configures the aws-iam destination plugin. Credentials come
// from the default AWS chain (environment, shared config, instance role).
type AWSIAMConfig struct {
	Region string `mapstructure:"region"`

	// Path is the IAM path prefix for uploaded server certificates.
	Path string `mapstructure:"path"`
}

// AWSIAMProvider stores certificates as IAM server certificates, where ELB
// and CloudFront can reference them.
type AWSIAMProvider struct {
	client iamiface.IAMAPI
	path   string
}

func NewAWSIAMProvider(config AWSIAMConfig) (*AWSIAMProvider, error) {
	opts := session.Options{SharedConfigState: session.SharedConfigEnable}
	if config.Region != "" {
		opts.Config = aws.Config{Region: aws.String(config.Region)}
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}

	path := config.Path
	if path == "" {
		path = "/"
	}

	return &AWSIAMProvider{client: iam.New(sess), path: path}, nil
}

func (p *AWSIAMProvider) Upload(ctx context.Context, name string, body, privateKey, chain []byte) error {
	input := &iam.UploadServerCertificateInput{
		ServerCertificateName: aws.String(name),
		CertificateBody:       aws.String(string(body)),
		PrivateKey:            aws.String(string(privateKey)),
		Path:                  aws.String(p.path),
	}
	if len(chain) > 0 {
		input.CertificateChain = aws.String(string(chain))
	}

	_, err := p.client.UploadServerCertificateWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("upload server certificate %q: %w", name, err)
	}
	return nil
}
