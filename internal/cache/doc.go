// Package cache 提供按月份键存放日历 PDF 的磁盘缓存。
// 写入通过临时文件 + rename 保证原子性，崩溃不会留下半成品文件。
package cache
