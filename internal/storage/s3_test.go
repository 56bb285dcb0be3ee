package storage

import "testing"

func TestInvoiceKey(t *testing.T) {
	t.Parallel()

	got := InvoiceKey("user-1", "INV-20240101-000001")
	want := "invoices/user-1/INV-20240101-000001.txt"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestObjectURL(t *testing.T) {
	t.Parallel()

	aws := &S3{cfg: S3Config{Region: "ap-southeast-1", Bucket: "lms-docs"}}
	if got := aws.ObjectURL("invoices/a.txt"); got != "https://lms-docs.s3.ap-southeast-1.amazonaws.com/invoices/a.txt" {
		t.Errorf("unexpected aws url %s", got)
	}

	minio := &S3{cfg: S3Config{Bucket: "lms-docs", Endpoint: "http://minio:9000/"}}
	if got := minio.ObjectURL("invoices/a.txt"); got != "http://minio:9000/lms-docs/invoices/a.txt" {
		t.Errorf("unexpected endpoint url %s", got)
	}
}
