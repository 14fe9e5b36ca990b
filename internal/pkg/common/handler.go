package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"sync"

	"storefront/internal/pkg/uploader"
	"storefront/pkg/logger"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxFiles 单次上传文件数上限
const maxFiles = 10

// UploadFile 上传商品图片 (支持批量)
// @Summary 上传商品图片到 OSS (支持批量)
// @Tags Common
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files"
// @Success 200 {object} response.Response{data=[]string} "URLs"
// @Router /upload [post]
func UploadFile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "No files uploaded")
		return
	}
	if len(files) > maxFiles {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Too many files")
		return
	}

	// 先整体校验，避免部分上传
	for _, f := range files {
		if _, err := uploader.ImageContentType(f); err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, f.Filename+": "+err.Error())
			return
		}
	}

	if uploader.GlobalUploader == nil {
		response.Error(c, http.StatusServiceUnavailable, response.ErrServerInternal, "Uploader not configured")
		return
	}

	urls := make([]string, len(files))

	var wg sync.WaitGroup
	var errOnce sync.Once
	var uploadErr error

	// 限制并发数为 5
	sem := make(chan struct{}, 5)

	for i, file := range files {
		wg.Add(1)
		go func(index int, f *multipart.FileHeader) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			url, err := uploader.GlobalUploader.UploadFile(f)
			if err != nil {
				errOnce.Do(func() {
					uploadErr = err
				})
				return
			}

			// 按索引赋值，保证顺序
			urls[index] = url
		}(i, file)
	}

	wg.Wait()

	if uploadErr != nil {
		if !errors.Is(uploadErr, uploader.ErrUnsupportedType) {
			logger.Log.Error("upload failed", zap.Error(uploadErr))
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Upload failed")
		return
	}

	response.Success(c, urls)
}
