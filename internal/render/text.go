// Package render turns lookup results into the user-facing text block.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/appointment-lookup/internal/appointment"
)

const (
	InsufficientInputText = "❌ 查询失败：请提供 access_token 或 姓名 + 身份证号"
	NotFoundText          = "❌ 未找到对应的预约记录，可能验证码已过期或信息有误"
	errorPrefix           = "❌ 查询异常: "

	unspecified    = "未指定"
	dateLayout     = "2006-01-02"
	deadlineLayout = "2006-01-02 15:04:05"
)

// Text renders any lookup outcome as the text shown to the caller.
func Text(res appointment.Result) string {
	switch r := res.(type) {
	case appointment.Found:
		return foundText(r.Appointment)
	case appointment.NotFound:
		return NotFoundText
	case appointment.InsufficientInput:
		return InsufficientInputText
	case appointment.Error:
		return errorPrefix + r.Message()
	default:
		return errorPrefix + fmt.Sprintf("unexpected result %T", res)
	}
}

func foundText(a appointment.Appointment) string {
	var b strings.Builder
	b.WriteString("📋 查询结果：\n")
	fmt.Fprintf(&b, "预约ID: %d\n", a.ID)
	fmt.Fprintf(&b, "姓名: %s\n", a.Username)
	fmt.Fprintf(&b, "身份证: %s\n", a.IDCard)
	fmt.Fprintf(&b, "科室: %s\n", Department(a.Department))
	fmt.Fprintf(&b, "日期: %s\n", Date(a.Date))
	fmt.Fprintf(&b, "时间: %s\n", Clock(a.Time))
	fmt.Fprintf(&b, "🔐 验证码有效期至: %s", Deadline(a.TokenExpireAt))
	return b.String()
}

// Department returns the department name, or 未指定 when it is missing.
func Department(d *string) string {
	if d == nil || *d == "" {
		return unspecified
	}
	return *d
}

// Date formats an appointment date as YYYY-MM-DD.
func Date(d *time.Time) string {
	if d == nil {
		return unspecified
	}
	return d.Format(dateLayout)
}

// Clock formats a time of day as H:MM:SS; hours are not zero padded.
func Clock(t *time.Duration) string {
	if t == nil {
		return unspecified
	}
	total := int64(t.Truncate(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// Deadline formats the token expiry to the second.
func Deadline(t time.Time) string {
	return t.Format(deadlineLayout)
}
