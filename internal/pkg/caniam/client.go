// Package caniam provisions the IAM role and policy the deployed canopy
// function executes under.
package caniam

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	log "github.com/sirupsen/logrus"
)

// Client wraps the IAM API for role and policy provisioning.
type Client struct {
	Client iamiface.IAMAPI
}

// AssumePolicyDocument allows Lambda to assume the execution role.
const AssumePolicyDocument = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "",
      "Effect": "Allow",
      "Principal": {
        "Service": [
          "lambda.amazonaws.com"
        ]
      },
      "Action": "sts:AssumeRole"
    }
  ]
}`

// AttachPolicyDocument grants the function the access a statistic task
// needs: reading input and writing artifacts in S3, invoking itself, and
// writing logs.
const AttachPolicyDocument = `{
    "Version": "2012-10-17",
    "Statement": [
        {
            "Effect": "Allow",
            "Action": [
                "lambda:InvokeFunction"
            ],
            "Resource": [
                "*"
            ]
        },
        {
            "Effect": "Allow",
            "Action": [
                "logs:CreateLogGroup",
                "logs:CreateLogStream",
                "logs:PutLogEvents"
            ],
            "Resource": "*"
        },
        {
            "Effect": "Allow",
            "Action": [
                "s3:*"
            ],
            "Resource": "arn:aws:s3:::*"
        }
    ]
}`

const canopyPolicyName = "canopy-permissions"

// NewClient initializes a new Client
func NewClient() *Client {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	return &Client{
		Client: iam.New(sess),
	}
}

func (c *Client) deployRole(roleName string) (roleARN string, err error) {
	getParams := &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	}
	exists, err := c.Client.GetRole(getParams)

	// Role already exists
	if exists != nil && err == nil {
		log.Debugf("IAM Role '%s' already exists", roleName)
		return *exists.Role.Arn, nil
	}

	createParams := &iam.CreateRoleInput{
		AssumeRolePolicyDocument: aws.String(AssumePolicyDocument),
		RoleName:                 aws.String(roleName),
	}
	log.Debugf("Creating IAM role '%s'", roleName)
	role, err := c.Client.CreateRole(createParams)
	if err != nil {
		return "", err
	}
	return *role.Role.Arn, err
}

func (c *Client) deployPolicy(roleName string) error {
	getParams := &iam.GetRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(canopyPolicyName),
	}

	exists, err := c.Client.GetRolePolicy(getParams)

	// Policy already exists
	if exists != nil && err == nil {
		log.Debugf("Policy '%s' already exists", *exists.PolicyName)
		return nil
	}

	createParams := &iam.PutRolePolicyInput{
		PolicyName:     aws.String(canopyPolicyName),
		PolicyDocument: aws.String(AttachPolicyDocument),
		RoleName:       aws.String(roleName),
	}

	log.Debugf("Creating policy '%s'", *createParams.PolicyName)
	_, err = c.Client.PutRolePolicy(createParams)
	return err
}

// DeployPermissions ensures the execution role and its policy exist,
// returning the role's ARN.
func (c *Client) DeployPermissions(roleName string) (roleARN string, err error) {
	roleARN, err = c.deployRole(roleName)
	if err != nil {
		return roleARN, err
	}

	err = c.deployPolicy(roleName)

	return roleARN, err
}
