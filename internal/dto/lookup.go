package dto

// ── 车辆 / 模板 / 上传 ──

// VehicleListRequest 车辆查询参数
type VehicleListRequest struct {
	Search string `form:"search" binding:"max=50"`
	Type   string `form:"type"   binding:"max=40"`
}

// VehicleResponse 车辆信息
type VehicleResponse struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
	Model  string `json:"model"`
	Plate  string `json:"plate"`
	Type   string `json:"type"`
}

// TemplateSummaryResponse 模板列表项
type TemplateSummaryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TemplateResponse 模板完整结构
type TemplateResponse struct {
	ID         string                     `json:"id"`
	Name       string                     `json:"name"`
	Categories []TemplateCategoryResponse `json:"categories"`
}

// TemplateCategoryResponse 模板分类
type TemplateCategoryResponse struct {
	Name  string                 `json:"name"`
	Items []TemplateItemResponse `json:"items"`
}

// TemplateItemResponse 模板检查项
type TemplateItemResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	ImageURL string `json:"image_url,omitempty"`
}

// PhotoAttachment 照片元数据（上传结果与检查项照片共用）
type PhotoAttachment struct {
	URL          string `json:"url"           binding:"required,max=500"`
	OriginalName string `json:"original_name" binding:"max=255"`
	Size         int64  `json:"size"          binding:"min=0"`
	Filename     string `json:"filename"      binding:"required,max=255"`
}
