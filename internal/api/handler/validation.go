package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/blog-api/internal/service"
	"github.com/d60-Lab/blog-api/pkg/response"
)

const maxFormMemory = 32 << 20

var registerOnce sync.Once

// registerJSONFieldNames 让校验错误使用 json 字段名
func registerJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
	})
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// normalizer 在校验前整理字段，例如去掉首尾空白
type normalizer interface {
	Normalize()
}

// bind 解析并校验请求体，失败时写出 400 并返回 false
func bind(c *gin.Context, obj interface{}) bool {
	verr, ok := bindFields(c, obj)
	if !ok {
		return false
	}
	if !verr.Empty() {
		handleError(c, verr)
		return false
	}
	return true
}

// bindFields 按 Content-Type 解析 JSON 或表单请求体并校验，所有字段错误聚合返回。
// 空请求体按 {} 处理。请求体本身无法解析时写出 400 并返回 false。
func bindFields(c *gin.Context, obj interface{}) (*service.ValidationError, bool) {
	verr := &service.ValidationError{}
	var (
		present map[string]bool
		err     error
	)
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		present, err = decodeForm(c.Request, obj)
	default:
		present, err = decodeJSON(c.Request, obj, verr)
	}
	if err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}

	if n, ok := obj.(normalizer); ok {
		n.Normalize()
	}

	// 解码失败（类型错误、null）的字段不再报告校验错误
	decodeFailed := make(map[string]bool, len(verr.Fields))
	for field := range verr.Fields {
		decodeFailed[field] = true
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			response.InternalError(c, err)
			return nil, false
		}
		for _, fe := range verrs {
			if decodeFailed[fe.Field()] {
				continue
			}
			verr.Add(fe.Field(), fieldMessage(fe, present[fe.Field()]))
		}
	}
	return verr, true
}

// decodeJSON 逐字段解码，每个字段的类型错误都会记录下来
func decodeJSON(req *http.Request, obj interface{}, verr *service.ValidationError) (map[string]bool, error) {
	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
	}
	var raw map[string]json.RawMessage
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("JSON parse error - %w", err)
		}
	}

	present := make(map[string]bool, len(raw))
	v := reflect.ValueOf(obj).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		name := jsonFieldName(fld)
		msg, ok := raw[name]
		if name == "" || !ok {
			continue
		}
		present[name] = true
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			verr.Add(name, "This field may not be null.")
			continue
		}
		if err := json.Unmarshal(msg, v.Field(i).Addr().Interface()); err != nil {
			verr.Add(name, typeMessage(fld.Type))
		}
	}
	return present, nil
}

// decodeForm 只读取请求体中的表单字段，不含查询串
func decodeForm(req *http.Request, obj interface{}) (map[string]bool, error) {
	if err := req.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	if err := binding.MapFormWithTag(obj, req.PostForm, "form"); err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(req.PostForm))
	for k := range req.PostForm {
		present[k] = true
	}
	return present, nil
}

func typeMessage(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "Not a valid string."
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	}
	return "Invalid value."
}

// fieldMessage present 表示请求中带了该字段但值为空
func fieldMessage(fe validator.FieldError, present bool) string {
	switch fe.Tag() {
	case "required":
		if present {
			return "This field may not be blank."
		}
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	}
	return "Invalid value."
}
