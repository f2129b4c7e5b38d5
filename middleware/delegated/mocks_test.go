package delegated_test

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockContext implements router.Context for the middleware tests. Only the
// methods the middleware touches are backed by mock expectations; the rest
// are zero-value stubs.
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Header(key string) string {
	return m.Called(key).String(0)
}

func (m *MockContext) Context() context.Context {
	return m.Called().Get(0).(context.Context)
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	return m.Called(key).Get(0)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	return m.Called(s).Error(0)
}

// Stubs to satisfy the rest of router.Context.

func (m *MockContext) Path() string                          { return "" }
func (m *MockContext) Method() string                        { return "" }
func (m *MockContext) Body() []byte                          { return nil }
func (m *MockContext) Send([]byte) error                     { return nil }
func (m *MockContext) JSON(int, any) error                   { return nil }
func (m *MockContext) NoContent(int) error                   { return nil }
func (m *MockContext) Render(string, any, ...string) error   { return nil }
func (m *MockContext) Redirect(string, ...int) error         { return nil }
func (m *MockContext) RedirectBack(string, ...int) error     { return nil }
func (m *MockContext) SetHeader(string, string) router.Context {
	return m
}
func (m *MockContext) RedirectToRoute(string, router.ViewContext, ...int) error {
	return nil
}
func (m *MockContext) Get(_ string, def any) any             { return def }
func (m *MockContext) GetBool(_ string, def bool) bool       { return def }
func (m *MockContext) GetInt(_ string, def int) int          { return def }
func (m *MockContext) GetString(_ string, def string) string { return def }
func (m *MockContext) Set(string, any)                       {}
func (m *MockContext) Bind(any) error                        { return nil }
func (m *MockContext) BindJSON(any) error                    { return nil }
func (m *MockContext) BindXML(any) error                     { return nil }
func (m *MockContext) BindQuery(any) error                   { return nil }
func (m *MockContext) CookieParser(any) error                { return nil }
func (m *MockContext) Cookie(*router.Cookie)                 {}
func (m *MockContext) Cookies(string, ...string) string      { return "" }
func (m *MockContext) Param(string, ...string) string        { return "" }
func (m *MockContext) ParamsInt(_ string, def int) int       { return def }
func (m *MockContext) Query(_ string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}
func (m *MockContext) QueryInt(_ string, def int) int        { return def }
func (m *MockContext) QueryValues(string) []string           { return nil }
func (m *MockContext) Queries() map[string]string            { return nil }
func (m *MockContext) OriginalURL() string                   { return "" }
func (m *MockContext) OnNext(func() error)                   {}
func (m *MockContext) Referer() string                       { return "" }
func (m *MockContext) LocalsMerge(any, map[string]any) map[string]any { return nil }
func (m *MockContext) FormFile(string) (*multipart.FileHeader, error) { return nil, nil }
func (m *MockContext) FormValue(_ string, def ...string) string {
	if len(def) > 0 {
		return def[0]
	}
	return ""
}
func (m *MockContext) IP() string                        { return "" }
func (m *MockContext) SendStatus(int) error              { return nil }
func (m *MockContext) SendStream(io.Reader) error        { return nil }
func (m *MockContext) RouteName() string                 { return "" }
func (m *MockContext) RouteParams() map[string]string    { return nil }
