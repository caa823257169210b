package clients_test

import (
	"context"
	"errors"
	"testing"

	"eigenda-sidecar/internal/cert"
	"eigenda-sidecar/internal/cert/certtest"
	"eigenda-sidecar/internal/clients"
	mock_clients "eigenda-sidecar/internal/clients/mock"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	verifierAddr = common.HexToAddress("0xE4F771f86B34BF7B323d9130c385117Ec39377c3")
	callerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000042")
)

func packBool(t *testing.T, method string, v bool) []byte {
	t.Helper()
	out, err := cert.ParsedVerifierABI().Methods[method].Outputs.Pack(v)
	require.NoError(t, err)
	return out
}

type revertError struct{}

func (revertError) Error() string          { return "execution reverted: InvalidInclusionProof" }
func (revertError) ErrorData() interface{} { return "0x08c379a0" }

func TestVerifyCertificate(t *testing.T) {
	v2 := cert.NewV2(certtest.V2(certtest.Commitment(3), 16))
	v1 := cert.NewV1(certtest.V1(certtest.Commitment(3), 10))

	tests := []struct {
		name        string
		crt         *cert.Certificate
		prepareMock func(m *mock_clients.MockContractCaller, t *testing.T)
		want        bool
		wantErr     bool
	}{
		{
			name: "v2 certificate accepted",
			crt:  v2,
			prepareMock: func(m *mock_clients.MockContractCaller, t *testing.T) {
				calldata, err := v2.VerifierCalldata()
				require.NoError(t, err)
				m.EXPECT().CallContract(gomock.Any(), ethereum.CallMsg{
					From: callerAddr,
					To:   &verifierAddr,
					Data: calldata,
				}, gomock.Nil()).Return(packBool(t, cert.MethodVerifyDACertV2, true), nil)
			},
			want: true,
		},
		{
			name: "v1 certificate rejected",
			crt:  v1,
			prepareMock: func(m *mock_clients.MockContractCaller, t *testing.T) {
				m.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(packBool(t, cert.MethodVerifyBlobV1, false), nil)
			},
			want: false,
		},
		{
			name: "revert counts as rejection",
			crt:  v2,
			prepareMock: func(m *mock_clients.MockContractCaller, t *testing.T) {
				m.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, revertError{})
			},
			want: false,
		},
		{
			name: "transport error",
			crt:  v2,
			prepareMock: func(m *mock_clients.MockContractCaller, t *testing.T) {
				m.EXPECT().CallContract(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mock_clients.NewMockContractCaller(ctrl)
			tt.prepareMock(m, t)

			logger := logrus.New()
			logger.SetLevel(logrus.PanicLevel)
			v := clients.NewVerifierClient(m, verifierAddr, callerAddr, logger)

			got, err := v.VerifyCertificate(context.Background(), tt.crt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
