package srs

import "time"

// LoadLocation 解析 IANA 时区名，空串回退到 UTC
// 用户未配置时区时所有"本地日"计算都按 UTC 进行
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// ToZone 把任意时间转换到目标时区
// 数据库中不带时区的时间戳按 UTC 存取，这是约定的宽松行为而非错误
func ToZone(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// ToZonePtr 是 ToZone 的指针版本，nil 原样返回
func ToZonePtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := ToZone(*t, loc)
	return &v
}

// LocalDate 返回时间在目标时区的日历日零点
// 日界判断必须用用户本地时钟，避免 UTC 跨日错位
func LocalDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
