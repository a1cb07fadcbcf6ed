package data

import (
	"context"
	"errors"
	"testing"

	"certification/lib/constants"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func String(v string) *string {
	return &v
}

type MockSSMClient struct {
	Pages  []*ssm.GetParametersByPathOutput
	Err    error
	Inputs []ssm.GetParametersByPathInput
}

func (m *MockSSMClient) GetParametersByPath(ctx context.Context, input *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	m.Inputs = append(m.Inputs, *input)
	if m.Err != nil {
		return nil, m.Err
	}
	page := m.Pages[0]
	m.Pages = m.Pages[1:]
	return page, nil
}

func Test_GetParameters_Success(t *testing.T) {
	//Arrange
	mock := &MockSSMClient{Pages: []*ssm.GetParametersByPathOutput{
		{
			Parameters: []types.Parameter{
				{Name: String(constants.DATABASE_NAME), Value: String("certification")},
				{Name: String(constants.FILES_BUCKET), Value: String("portal-files")},
			},
			NextToken: String("page-2"),
		},
		{
			Parameters: []types.Parameter{
				{Name: String(constants.ENVIRONMENT), Value: String("production")},
			},
		},
	}}
	ssmRepository := &SSMDao{SSM: mock, Logger: quietLogger()}

	//Act
	actual, err := ssmRepository.GetParameters()

	//Assert
	require.NoError(t, err)
	assert.Equal(t, "certification", actual[constants.DATABASE_NAME])
	assert.Equal(t, "portal-files", actual[constants.FILES_BUCKET])
	assert.Equal(t, "production", actual[constants.ENVIRONMENT])
	require.Len(t, mock.Inputs, 2)
	assert.Equal(t, constants.PARAMETER_PATH, *mock.Inputs[0].Path)
	assert.Equal(t, "page-2", *mock.Inputs[1].NextToken)
}

func Test_GetParameters_Failure(t *testing.T) {
	//Arrange
	ssmRepository := &SSMDao{SSM: &MockSSMClient{Err: errors.New("error in GetParametersByPath")}, Logger: quietLogger()}
	expected := "error in GetParametersByPath"

	//Act
	_, actual := ssmRepository.GetParameters()

	//Assert
	assert.Equal(t, expected, actual.Error())
}
