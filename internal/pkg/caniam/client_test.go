package caniam

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/iam/iamiface"
	"github.com/stretchr/testify/assert"
)

type mockIAMAPI struct {
	iamiface.IAMAPI

	roles        map[string]string // role name -> ARN
	policies     map[string]bool
	createdRoles []string
}

func newMockIAMAPI() *mockIAMAPI {
	return &mockIAMAPI{
		roles:    make(map[string]string),
		policies: make(map[string]bool),
	}
}

func (m *mockIAMAPI) GetRole(input *iam.GetRoleInput) (*iam.GetRoleOutput, error) {
	arn, ok := m.roles[*input.RoleName]
	if !ok {
		return nil, fmt.Errorf("NoSuchEntity: role %s", *input.RoleName)
	}
	return &iam.GetRoleOutput{
		Role: &iam.Role{Arn: aws.String(arn)},
	}, nil
}

func (m *mockIAMAPI) CreateRole(input *iam.CreateRoleInput) (*iam.CreateRoleOutput, error) {
	arn := "arn:aws:iam::123456789012:role/" + *input.RoleName
	m.roles[*input.RoleName] = arn
	m.createdRoles = append(m.createdRoles, *input.RoleName)
	return &iam.CreateRoleOutput{
		Role: &iam.Role{Arn: aws.String(arn)},
	}, nil
}

func (m *mockIAMAPI) GetRolePolicy(input *iam.GetRolePolicyInput) (*iam.GetRolePolicyOutput, error) {
	if !m.policies[*input.RoleName] {
		return nil, fmt.Errorf("NoSuchEntity: policy for %s", *input.RoleName)
	}
	return &iam.GetRolePolicyOutput{
		PolicyName: input.PolicyName,
	}, nil
}

func (m *mockIAMAPI) PutRolePolicy(input *iam.PutRolePolicyInput) (*iam.PutRolePolicyOutput, error) {
	m.policies[*input.RoleName] = true
	return &iam.PutRolePolicyOutput{}, nil
}

func TestDeployPermissionsCreatesRoleAndPolicy(t *testing.T) {
	mock := newMockIAMAPI()
	client := &Client{Client: mock}

	arn, err := client.DeployPermissions("canopy_function_role")
	assert.Nil(t, err)

	assert.Equal(t, "arn:aws:iam::123456789012:role/canopy_function_role", arn)
	assert.Equal(t, []string{"canopy_function_role"}, mock.createdRoles)
	assert.True(t, mock.policies["canopy_function_role"])
}

func TestDeployPermissionsIsIdempotent(t *testing.T) {
	mock := newMockIAMAPI()
	client := &Client{Client: mock}

	first, err := client.DeployPermissions("canopy_function_role")
	assert.Nil(t, err)

	second, err := client.DeployPermissions("canopy_function_role")
	assert.Nil(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, mock.createdRoles, 1)
}
