package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/d60-Lab/blog-api/pkg/response"
)

const helloMessage = "Hello World"

// Homepage 问候
// @Summary 问候
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /homepage [get]
func (h *Handler) Homepage(c *gin.Context) {
	response.Success(c, gin.H{"message": helloMessage})
}

// EchoHomepage 回显请求体
// @Summary 问候并回显
// @Tags 系统
// @Accept json,x-www-form-urlencoded,mpfd
// @Produce json
// @Param request body object false "任意 JSON"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /homepage [post]
func (h *Handler) EchoHomepage(c *gin.Context) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		form, err := formData(c.Request)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		response.Created(c, gin.H{"message": helloMessage, "data": form})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var data interface{} = map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			response.BadRequest(c, "JSON parse error - "+err.Error())
			return
		}
	}
	response.Created(c, gin.H{"message": helloMessage, "data": data})
}

// formData 单值字段展开为字符串，多值保留为列表
func formData(req *http.Request) (map[string]interface{}, error) {
	if err := req.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	data := make(map[string]interface{}, len(req.PostForm))
	for k, vs := range req.PostForm {
		if len(vs) == 1 {
			data[k] = vs[0]
		} else {
			data[k] = vs
		}
	}
	return data, nil
}
