package paramstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr(`{"k":"v"}`), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), " p ")
	require.NoError(t, err)
	require.Equal(t, `{"k":"v"}`, v)
	require.Equal(t, "p", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: fmt.Errorf("operation error: %w", &types.ParameterNotFound{})}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/x/restaurants/1/profile")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestGetJSON(t *testing.T) {
	g := &fakeGetter{vals: map[string]string{"good": `{"token":"t"}`, "bad": `not json`}}
	var v struct {
		Token string `json:"token"`
	}
	require.NoError(t, GetJSON(context.Background(), g, "good", &v))
	require.Equal(t, "t", v.Token)
	require.ErrorContains(t, GetJSON(context.Background(), g, "bad", &v), "decode")
	require.ErrorIs(t, GetJSON(context.Background(), g, "missing", &v), ErrNotFound)
}
