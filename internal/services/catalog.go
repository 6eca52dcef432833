package services

import (
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// CatalogService manages the sellable catalog: services, jobs, job criteria
// and vendors.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) CreateService(in models.Service, jobIDs []string) (*models.Service, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.Name == "" {
			return apperr.Validation("Dịch vụ cần có tên")
		}
		if err := tx.Create(&in).Error; err != nil {
			return err
		}
		return s.replaceJobs(tx, &in, jobIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetService(in.ID)
}

func (s *CatalogService) UpdateService(id string, patch models.Service, jobIDs []string) (*models.Service, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.First(&svc, "id = ?", id).Error; err != nil {
			return notFoundOr("dịch vụ", err)
		}
		updates := map[string]any{
			"name":        patch.Name,
			"description": patch.Description,
			"cost_price":  patch.CostPrice,
		}
		if patch.OutputJobID != nil {
			updates["output_job_id"] = *patch.OutputJobID
		}
		if err := tx.Model(&svc).Updates(updates).Error; err != nil {
			return err
		}
		if jobIDs == nil {
			return nil
		}
		return s.replaceJobs(tx, &svc, jobIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetService(id)
}

func (s *CatalogService) replaceJobs(tx *gorm.DB, svc *models.Service, jobIDs []string) error {
	if jobIDs == nil {
		return nil
	}
	var jobs []models.Job
	if len(jobIDs) > 0 {
		if err := tx.Where("id IN ?", jobIDs).Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) != len(jobIDs) {
			return apperr.NotFound("đầu việc")
		}
	}
	return tx.Model(svc).Association("Jobs").Replace(jobs)
}

func (s *CatalogService) GetService(id string) (*models.Service, error) {
	var svc models.Service
	err := s.db.Preload("Jobs").Preload("Jobs.Criteria").Preload("OutputJob").
		First(&svc, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("dịch vụ", err)
	}
	return &svc, nil
}

func (s *CatalogService) ListServices() ([]models.Service, error) {
	var out []models.Service
	err := s.db.Preload("Jobs").Order("name ASC").Find(&out).Error
	return out, err
}

func (s *CatalogService) CreateJob(in models.Job) (*models.Job, error) {
	if in.Name == "" || in.Code == "" {
		return nil, apperr.Validation("Đầu việc cần có tên và mã")
	}
	if in.DefaultPerformerType == "" {
		in.DefaultPerformerType = models.PerformerTypeInternal
	}
	if err := s.db.Create(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *CatalogService) GetJob(id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Preload("Criteria").First(&job, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("đầu việc", err)
	}
	return &job, nil
}

func (s *CatalogService) ListJobs() ([]models.Job, error) {
	var out []models.Job
	err := s.db.Preload("Criteria").Order("code ASC").Find(&out).Error
	return out, err
}

func (s *CatalogService) AddCriteria(jobID string, in models.JobCriteria) (*models.JobCriteria, error) {
	var job models.Job
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		return nil, notFoundOr("đầu việc", err)
	}
	in.JobID = job.ID
	if err := s.db.Create(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

// RemoveCriteria soft-deletes: historical reviews keep pointing at the row.
func (s *CatalogService) RemoveCriteria(id string) error {
	res := s.db.Delete(&models.JobCriteria{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("tiêu chí đánh giá")
	}
	return nil
}

func (s *CatalogService) CreateVendor(in models.Vendor) (*models.Vendor, error) {
	if in.Name == "" {
		return nil, apperr.Validation("Nhà cung cấp cần có tên")
	}
	if err := s.db.Create(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *CatalogService) ListVendors() ([]models.Vendor, error) {
	var out []models.Vendor
	err := s.db.Preload("Jobs").Preload("Jobs.Job").Order("name ASC").Find(&out).Error
	return out, err
}

func (s *CatalogService) AddVendorJob(vendorID string, in models.VendorJob) (*models.VendorJob, error) {
	var vendor models.Vendor
	if err := s.db.First(&vendor, "id = ?", vendorID).Error; err != nil {
		return nil, notFoundOr("nhà cung cấp", err)
	}
	var job models.Job
	if err := s.db.First(&job, "id = ?", in.JobID).Error; err != nil {
		return nil, notFoundOr("đầu việc", err)
	}
	in.VendorID = vendor.ID
	if err := s.db.Create(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}
