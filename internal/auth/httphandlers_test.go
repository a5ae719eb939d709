package auth

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/logging"
	"vet-clinic/internal/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwt"
)

const (
	hashedTestPassword = "$2a$10$1Q/8dWTn4AsoKm0SIVl8LeBf8x0jNPf7Wj92Ywmk07XI.9s95b/eK"
	plainTestPassword  = "test"
	receptionistEmail  = "front.desk@clinic.com"
)

var (
	logger       = logging.Discard()
	userColumns  = []string{"id", "uuid", "email", "role"}
	receptionist = User{ID: 1, UUID: uuid.UUID{}, Email: receptionistEmail, Role: ReceptionistRole}
)

type mockAuthorizer struct {
	mockValidateToken        func(ctx context.Context, token string) (*User, error)
	mockRefreshTokens        func(ctx context.Context, tokens Tokens) (*Tokens, error)
	mockGetAuthenticatedUser func(ctx context.Context) (User, error)
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*User, error) {
	return m.mockValidateToken(ctx, token)
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error) {
	return m.mockRefreshTokens(ctx, tokens)
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (User, error) {
	return m.mockGetAuthenticatedUser(ctx)
}

func receptionistRows() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(1, uuid.UUID{}.String(), receptionistEmail, string(ReceptionistRole))
}

func withFindUserByEmailResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByEmailQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindUserByEmailError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByEmailQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func withFindPasswordResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findPasswordQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindPasswordError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findPasswordQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func withFindUserByUUIDResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByUUIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindUserByUUIDError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByUUIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func TestAuthenticate(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		credentials   Credentials
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should authenticate the user",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(receptionistRows()),
					withFindPasswordResult(sqlmock.NewRows([]string{"password"}).AddRow(hashedTestPassword)),
				},
				credentials: Credentials{Email: receptionistEmail, Password: plainTestPassword},
			},
			want: http.StatusOK,
		},
		{
			name: "should not authenticate the user because the user was not found",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(sqlmock.NewRows(userColumns)),
				},
				credentials: Credentials{Email: receptionistEmail, Password: plainTestPassword},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not authenticate the user because the given password is invalid",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(receptionistRows()),
					withFindPasswordResult(sqlmock.NewRows([]string{"password"}).AddRow(hashedTestPassword)),
				},
				credentials: Credentials{Email: receptionistEmail, Password: "wrong"},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not authenticate the user due to a database error while searching for the user",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByEmailError()},
				credentials:   Credentials{Email: receptionistEmail, Password: plainTestPassword},
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should not authenticate the user due to a database error while parsing the user found",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(sqlmock.NewRows(userColumns).AddRow(-1, false, receptionistEmail, string(ReceptionistRole))),
				},
				credentials: Credentials{Email: receptionistEmail, Password: plainTestPassword},
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should not authenticate the user due to a database error while searching for the password",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(receptionistRows()),
					withFindPasswordError(),
				},
				credentials: Credentials{Email: receptionistEmail, Password: plainTestPassword},
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should not authenticate the user because the email was empty",
			args: args{
				dbConn:      mock.MustCreateConnectionMock(),
				credentials: Credentials{Password: plainTestPassword},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not authenticate the user because the password was empty",
			args: args{
				dbConn:      mock.MustCreateConnectionMock(),
				credentials: Credentials{Email: receptionistEmail},
			},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			body, _ := json.Marshal(tt.args.credentials)
			req, _ := http.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if err := tt.args.dbConn.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet database expectations: %v", err)
			}
		})
	}
}

func TestGetAuthenticatedUser(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		token         func(tokens *Tokens) string
	}
	accessToken := func(tokens *Tokens) string { return tokens.AccessToken }
	tests := []struct {
		name         string
		args         args
		want         int
		wantResponse string
	}{
		{
			name: "should get the authenticated user",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByUUIDResult(receptionistRows())},
				token:         accessToken,
			},
			want:         http.StatusOK,
			wantResponse: "{\"uuid\":\"00000000-0000-0000-0000-000000000000\",\"email\":\"front.desk@clinic.com\",\"role\":\"RECEPTIONIST\"}\n",
		},
		{
			name: "should not get the authenticated user because the user was not found",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByUUIDResult(sqlmock.NewRows(userColumns))},
				token:         accessToken,
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not get the authenticated user due to a database error",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByUUIDError()},
				token:         accessToken,
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not get the authenticated user when a refresh token is used as access token",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				token:  func(tokens *Tokens) string { return tokens.RefreshToken },
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not get the authenticated user without a token",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				token:  func(tokens *Tokens) string { return "" },
			},
			want: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			tokens := MustGenerateTokens(context.TODO(), config.PrivateKey(), receptionist)
			req, _ := http.NewRequest("GET", "/api/v1/auth/me", nil)
			req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", tt.args.token(tokens)))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}

			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(response.Body); err != nil {
				t.Errorf("an error occurred while reading response body: %v", err)
			}
			if tt.wantResponse != "" && tt.wantResponse != buf.String() {
				t.Errorf("response body is incorrect, got %s, want %s", buf.String(), tt.wantResponse)
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		tokenOptions  []TokenOption
		changeToken   func(tokens *Tokens)
	}
	asRefreshGrant := func(tokens *Tokens) {
		tokens.GrantType = "refresh_token"
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should refresh tokens",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByUUIDResult(receptionistRows())},
				changeToken:   asRefreshGrant,
			},
			want: http.StatusOK,
		},
		{
			name: "should not refresh tokens without the grant type",
			args: args{
				dbConn:      mock.MustCreateConnectionMock(),
				changeToken: func(tokens *Tokens) {},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not refresh tokens with an invalid grant type",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				changeToken: func(tokens *Tokens) {
					tokens.GrantType = "password"
				},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not refresh tokens using an access token",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				changeToken: func(tokens *Tokens) {
					asRefreshGrant(tokens)
					tokens.RefreshToken = tokens.AccessToken
				},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not refresh tokens with a tampered token",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				changeToken: func(tokens *Tokens) {
					asRefreshGrant(tokens)
					tokens.RefreshToken += "x"
				},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not refresh tokens due to a database error while searching for the user",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByUUIDError()},
				changeToken:   asRefreshGrant,
			},
			want: http.StatusInternalServerError,
		},
		{
			name: "should not refresh tokens because the user associated to it no longer exists",
			args: args{
				dbConn:        mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{withFindUserByUUIDResult(sqlmock.NewRows(userColumns))},
				changeToken:   asRefreshGrant,
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not refresh tokens because the given token is expired",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				tokenOptions: []TokenOption{func(token jwt.Token) error {
					return token.Set(jwt.ExpirationKey, time.Now().Add(-10*time.Hour))
				}},
				changeToken: asRefreshGrant,
			},
			want: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			tokens := MustGenerateTokens(context.TODO(), config.PrivateKey(), receptionist, tt.args.tokenOptions...)
			tt.args.changeToken(tokens)

			body, _ := json.Marshal(tokens)
			req, _ := http.NewRequest("PUT", "/api/v1/auth/token", bytes.NewBuffer(body))

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}
